package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"mc-terrain/internal/config"
	"mc-terrain/internal/logger"
	"mc-terrain/internal/meshing"
	"mc-terrain/internal/profiling"
	"mc-terrain/internal/terrain"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "terrain:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "YAML config file (defaults when empty)")
		seed       = flag.Int64("seed", 0, "override world.seed when non-zero")
		out        = flag.String("out", "terrain.obj", "write meshes as Wavefront OBJ (empty to skip)")
		save       = flag.Bool("save", false, "persist dirty chunks before exit")
		ray        = flag.String("ray", "", "cast a ray: ox,oy,oz,dx,dy,dz")
		sculpt     = flag.Float64("sculpt", 0, "brush seconds at the ray hit; negative removes material")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *seed != 0 {
		cfg.World.Seed = *seed
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := terrain.NewSession(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Log.Error("close session", zap.Error(err))
		}
	}()

	start := time.Now()
	if _, err := s.CreateChunks(ctx); err != nil {
		return err
	}
	n, err := s.MeshAll(ctx)
	if err != nil {
		return err
	}
	logger.Log.Info("terrain built",
		zap.Int("meshes", n),
		zap.Duration("elapsed", time.Since(start)))

	if *ray != "" {
		origin, dir, err := parseRay(*ray)
		if err != nil {
			return err
		}
		if err := castAndSculpt(ctx, s, origin, dir, float32(*sculpt)); err != nil {
			return err
		}
	}

	if *out != "" {
		if err := writeOBJ(*out, s.Meshes()); err != nil {
			return err
		}
	}
	if *save {
		if _, err := s.SaveAll(); err != nil {
			return err
		}
	}
	logger.Log.Info("timings", zap.String("top", profiling.TopN(5)))
	return nil
}

func castAndSculpt(ctx context.Context, s *terrain.Session, origin, dir mgl32.Vec3, seconds float32) error {
	if seconds == 0 {
		hit := s.Raycast(origin, dir)
		if !hit.Hit {
			logger.Log.Info("ray missed")
			return nil
		}
		logger.Log.Info("ray hit",
			zap.Stringer("chunk", hit.Chunk.Coord),
			zap.Float32("distance", hit.Distance),
			zap.Float32s("point", hit.Point[:]),
			zap.Float32s("normal", hit.Normal[:]))
		return nil
	}
	add := seconds > 0
	if !add {
		seconds = -seconds
	}
	hit, touched, err := s.Sculpt(ctx, origin, dir, add, seconds)
	if err != nil {
		return err
	}
	if !hit.Hit {
		logger.Log.Info("ray missed, nothing sculpted")
		return nil
	}
	logger.Log.Info("sculpted",
		zap.Bool("add", add),
		zap.Float32s("point", hit.Point[:]),
		zap.Int("chunks", len(touched)))
	return nil
}

func parseRay(s string) (origin, dir mgl32.Vec3, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 6 {
		return origin, dir, fmt.Errorf("-ray: want 6 comma separated values, got %d", len(parts))
	}
	var v [6]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return origin, dir, fmt.Errorf("-ray: %w", err)
		}
		v[i] = float32(f)
	}
	origin = mgl32.Vec3{v[0], v[1], v[2]}
	dir = mgl32.Vec3{v[3], v[4], v[5]}
	if dir.Len() == 0 {
		return origin, dir, fmt.Errorf("-ray: zero direction")
	}
	return origin, dir, nil
}

func writeOBJ(path string, meshes []*meshing.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := meshing.WriteOBJ(f, meshes...); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Log.Info("mesh written", zap.String("path", path), zap.Int("chunks", len(meshes)))
	return nil
}
