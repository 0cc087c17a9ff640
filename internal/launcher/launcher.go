// Package launcher turns a validated config.Config into a running,
// supervised set of nodes: it opens the one shared transport
// session for the process, resolves each configured node's type
// against a project Registry first and the framework's built-in
// internal/components second, constructs and starts every node, and
// wires up the recorder/player auxiliary processes when their
// environment variables are set.
package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/components"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/connwatch"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/config"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/node"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/player"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/recorder"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/transport"
)

// Environment variables recognized by Launch.
const (
	EnvRecordBag   = "TIDE_RECORD_BAG"
	EnvPlaybackBag = "TIDE_PLAYBACK_BAG"
)

// AuxProcess is a launcher-managed background process that runs
// alongside the configured node set but is not itself one of
// cfg.Nodes: the bag recorder or player, started from an environment
// variable rather than a config entry, plus the transport connection
// watcher.
type AuxProcess interface {
	// Stop releases the process's resources. Idempotent.
	Stop() error
}

type recorderProcess struct {
	writer *recorder.BagWriter
}

func (p *recorderProcess) Stop() error {
	recorder.SetActive(nil)
	return p.writer.Close()
}

type playerProcess struct {
	pl *player.Player
}

func (p *playerProcess) Stop() error {
	p.pl.Stop()
	return p.pl.LastError()
}

// connectionAwaiter is implemented by session bindings whose broker may
// come and go (the MQTT binding); the local in-process binding has no
// connection to probe and is skipped.
type connectionAwaiter interface {
	AwaitConnection(ctx context.Context) error
}

type watcherProcess struct {
	w *connwatch.Watcher
}

func (p *watcherProcess) Stop() error {
	p.w.Stop()
	return nil
}

// watchSession attaches a connwatch.Watcher probing the session's
// broker connection, so a broker that drops after launch is logged and
// surfaced through the watcher's ready flag rather than silently eaten
// by the transport's own background retry loop.
func watchSession(ctx context.Context, session transport.Session, logger *slog.Logger) AuxProcess {
	aw, ok := session.(connectionAwaiter)
	if !ok {
		return nil
	}
	w := connwatch.NewManager(logger).Watch(ctx, connwatch.WatcherConfig{
		Name: "transport",
		Probe: func(ctx context.Context) error {
			return aw.AwaitConnection(ctx)
		},
		Backoff: connwatch.DefaultBackoffConfig(),
		Logger:  logger,
	})
	return &watcherProcess{w: w}
}

// Launch constructs and starts every node in cfg.Nodes against a single
// shared transport.Session, then starts any environment-gated auxiliary
// processes. cfg is assumed already validated (config.Load does this);
// Launch itself performs no YAML validation.
//
// Construction and Start are fanned out across cfg.Nodes via
// errgroup.Group so slow node constructors (e.g. ones that probe
// hardware) don't serialize startup, but the result is still
// all-or-nothing: if any node fails to construct, every node already
// started is stopped and the session is closed before Launch returns
// the error — launch is all-or-nothing even in the fan-out case where
// some nodes may have already started by the time a later one fails.
func Launch(ctx context.Context, cfg *config.Config, projectRegistry *node.Registry, logger *slog.Logger) ([]node.Runtime, []AuxProcess, error) {
	if logger == nil {
		logger = slog.Default()
	}

	session, err := transport.Open(cfg.Session, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("launcher: open transport session: %w", err)
	}

	var aux []AuxProcess
	if w := watchSession(ctx, session, logger); w != nil {
		aux = append(aux, w)
	}
	if dir := os.Getenv(EnvRecordBag); dir != "" {
		writer, err := recorder.NewBagWriter(dir, logger)
		if err != nil {
			session.Close()
			return nil, nil, fmt.Errorf("launcher: start recorder: %w", err)
		}
		recorder.SetActive(writer)
		aux = append(aux, &recorderProcess{writer: writer})
		logger.Info("launcher: recording active", "bag_dir", dir)
	}

	builtins := components.Builtins()
	nodes := make([]node.Runtime, len(cfg.Nodes))

	group, gctx := errgroup.WithContext(ctx)
	for i, nc := range cfg.Nodes {
		i, nc := i, nc
		group.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			ctor, ok := resolve(projectRegistry, builtins, nc.Type)
			if !ok {
				return fmt.Errorf("launcher: nodes[%d]: unresolvable type %q (known built-ins: %v)", i, nc.Type, builtins.Names())
			}

			n, err := ctor(node.Config{
				RobotID:  stringParam(nc.Params, "robot_id", ""),
				Group:    stringParam(nc.Params, "group", ""),
				Hz:       floatParam(nc.Params, "hz", node.DefaultHz),
				Session:  session,
				Logger:   logger.With("node_type", nc.Type),
				Recorder: recorderSink(),
				Params:   nc.Params,
			})
			if err != nil {
				return fmt.Errorf("launcher: nodes[%d] (%s): construct: %w", i, nc.Type, err)
			}
			n.Start()
			nodes[i] = n
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		for _, n := range nodes {
			if n != nil {
				n.Stop()
			}
		}
		for _, a := range aux {
			a.Stop()
		}
		session.Close()
		return nil, nil, err
	}

	if dir := os.Getenv(EnvPlaybackBag); dir != "" {
		pl, err := player.Open(dir, session, logger)
		if err != nil {
			for _, n := range nodes {
				n.Stop()
			}
			for _, a := range aux {
				a.Stop()
			}
			session.Close()
			return nil, nil, fmt.Errorf("launcher: start player: %w", err)
		}
		pl.Start(ctx)
		aux = append(aux, &playerProcess{pl: pl})
		logger.Info("launcher: playback active", "bag_dir", dir)
	}

	return nodes, aux, nil
}

// resolve implements the two-step lookup: the project
// registry first, then the framework's built-in component namespace.
func resolve(project *node.Registry, builtins *node.Registry, typeName string) (node.Constructor, bool) {
	if project != nil {
		if ctor, ok := project.Resolve(typeName); ok {
			return ctor, true
		}
	}
	return builtins.Resolve(typeName)
}

// recorderSink reads the process-wide recorder singleton (installed a
// few lines up when TIDE_RECORD_BAG is set) as each node's
// node.RecorderSink, or nil so node.New falls back to its own no-op.
// The singleton is consulted here, at construction time, rather than on
// every Put — see DESIGN.md.
func recorderSink() node.RecorderSink {
	if r := recorder.Active(); r != nil {
		return r
	}
	return nil
}

// stringParam reads a string out of params, defaulting to def when
// absent or not a string. Mirrors internal/components's private helper
// of the same name — duplicated rather than exported because the two
// packages' params shapes evolve independently (this one reads
// launcher-reserved keys; components reads node-specific ones).
func stringParam(params map[string]any, key, def string) string {
	v, ok := params[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// floatParam reads a float64 out of params, applying def when absent.
// YAML numeric scalars decode through gopkg.in/yaml.v3 as int or
// float64 depending on literal form, so both are accepted.
func floatParam(params map[string]any, key string, def float64) float64 {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}
