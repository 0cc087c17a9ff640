// Package tide is the public surface of the Tide robotics middleware:
// a project embedding Tide as a library imports this package, defines
// its node types against Node/NodeConfig, registers them in a Registry,
// and hands a loaded config to Launch. The cmd/tide CLI is a thin shell
// over the same calls.
//
// The concrete machinery lives under internal/; the aliases here are
// the supported import path for external projects (including the ones
// `tide init` scaffolds).
package tide

import (
	"context"
	"log/slog"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/config"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/launcher"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/namespace"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/node"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/transport"

	_ "github.com/NorthCarolinaRivalRobotics/tide/internal/transport/local"
	_ "github.com/NorthCarolinaRivalRobotics/tide/internal/transport/mqtt"
)

// Node runtime surface.
type (
	// Node is the embeddable base every concrete node type wraps.
	Node = node.Node
	// NodeConfig parameterizes a Node at construction time.
	NodeConfig = node.Config
	// Runtime is the full per-node contract: Put, Subscribe,
	// RegisterCallback, Take, Get, Start, Stop.
	Runtime = node.Runtime
	// Stepper is the periodic hook a concrete node implements.
	Stepper = node.Stepper
	// Callback receives a decoded sample on a transport goroutine.
	Callback = node.Callback
	// Constructor builds one Runtime from its NodeConfig.
	Constructor = node.Constructor
	// Registry maps dotted type names to Constructors.
	Registry = node.Registry
	// Handle is the opaque worker handle Start returns.
	Handle = node.Handle
)

// Configuration and transport surface.
type (
	// LaunchConfig is a loaded config file: session block plus node list.
	LaunchConfig = config.Config
	// SessionConfig configures the shared transport session.
	SessionConfig = config.SessionConfig
	// NodeSpec declares one node in a LaunchConfig.
	NodeSpec = config.NodeConfig
	// Session is the process-wide pub/sub transport handle.
	Session = transport.Session
	// AuxProcess is a launcher-managed recorder/player process.
	AuxProcess = launcher.AuxProcess
)

// Session operating modes.
const (
	ModePeer   = config.ModePeer
	ModeClient = config.ModeClient
	ModeRouter = config.ModeRouter
)

// DefaultHz is the scheduler rate used when a NodeConfig does not set one.
const DefaultHz = node.DefaultHz

// NewNode constructs the embeddable node base from cfg. The concrete
// node's constructor must call Bind(self) on the result before Start.
func NewNode(cfg NodeConfig) *Node { return node.New(cfg) }

// NewRegistry returns an empty node-type registry.
func NewRegistry() *Registry { return node.NewRegistry() }

// LoadConfig reads, defaults, and validates a YAML config file.
func LoadConfig(path string) (*LaunchConfig, error) { return config.Load(path) }

// OpenSession opens the transport binding selected by cfg: the
// in-process broker by default, MQTT when cfg.Broker names a broker URL.
func OpenSession(cfg SessionConfig, logger *slog.Logger) (Session, error) {
	return transport.Open(cfg, logger)
}

// Launch constructs and starts every node in cfg against one shared
// session, resolving each node type against projectRegistry first and
// the built-in components second. See internal/launcher for the
// recorder/player environment-variable coupling.
func Launch(ctx context.Context, cfg *LaunchConfig, projectRegistry *Registry, logger *slog.Logger) ([]Runtime, []AuxProcess, error) {
	return launcher.Launch(ctx, cfg, projectRegistry, logger)
}

// MakeKey derives the full transport key for (robotID, group, topic).
func MakeKey(robotID, group, topic string) string {
	return namespace.MakeKey(robotID, group, topic)
}

// ParseKey splits a full key back into its robot/group/topic segments.
func ParseKey(key string) (robotID, group, topic string) {
	return namespace.ParseKey(key)
}
