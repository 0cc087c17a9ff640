package components

import (
	"fmt"
	"sort"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/node"
)

// muxInput is one priority-ordered input topic: priority 0 is highest
// (a manual-override source preempts anything with a larger priority
// number).
type muxInput struct {
	Topic    string `json:"topic" yaml:"topic"`
	Priority int    `json:"priority" yaml:"priority"`
}

// MuxNode selects among several input topics by priority each tick and
// republishes the winner's value on a single output topic — the
// teleop-overrides-autonomy pattern.
type MuxNode struct {
	node.Node

	inputs []muxInput
	output string
}

func newMuxConstructor(cfg node.Config) (node.Runtime, error) {
	return NewMuxNode(cfg)
}

// NewMuxNode constructs a MuxNode from cfg.Params: "inputs" (a list of
// {topic, priority} entries) and "output_topic" (default "mux").
func NewMuxNode(cfg node.Config) (*MuxNode, error) {
	inputs, err := parseMuxInputs(cfg.Params["inputs"])
	if err != nil {
		return nil, fmt.Errorf("components: mux node: %w", err)
	}
	sort.SliceStable(inputs, func(i, j int) bool { return inputs[i].Priority < inputs[j].Priority })

	m := &MuxNode{
		inputs: inputs,
		output: stringParam(cfg.Params, "output_topic", "mux"),
	}
	m.Node = *node.New(cfg)
	m.Node.Bind(m)
	for _, in := range m.inputs {
		m.Subscribe(in.Topic, nil)
	}
	return m, nil
}

// Step drains every input's latest-value cache and republishes the
// highest-priority one that had a fresh sample this tick. Lower-priority
// inputs are still drained (their cached value is consumed) even when
// not selected, matching Take's last-writer-wins contract:
// a stale value left uncleared would otherwise win a future tick where
// only it happens to have been re-polled.
func (m *MuxNode) Step() error {
	var winner any
	found := false
	for _, in := range m.inputs {
		v, ok := m.Take(in.Topic)
		if ok && !found {
			winner = v
			found = true
		}
	}
	if !found {
		return nil
	}
	return m.Put(m.output, winner)
}

func parseMuxInputs(raw any) ([]muxInput, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("params.inputs must be a list of {topic, priority}")
	}
	inputs := make([]muxInput, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("params.inputs[%d] must be a mapping", i)
		}
		topic, _ := m["topic"].(string)
		if topic == "" {
			return nil, fmt.Errorf("params.inputs[%d].topic must be a non-empty string", i)
		}
		inputs = append(inputs, muxInput{Topic: topic, Priority: int(floatParam(m, "priority", 0))})
	}
	return inputs, nil
}
