package sim

import (
	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
	"github.com/QoPMLProject/AQoPA-sub000/sim/routing"
)

// ChannelsManager owns every channel of a simulation and resolves the
// channel a communication instruction refers to.
type ChannelsManager struct {
	channels []*Channel
	router   *routing.Router
}

// NewChannelsManager creates a manager over channels. router may be nil when
// no channel has a topology.
func NewChannelsManager(channels []*Channel, router *routing.Router) *ChannelsManager {
	if router == nil {
		router = routing.NewRouter()
	}
	return &ChannelsManager{channels: channels, router: router}
}

// Channels returns every channel in build order.
func (m *ChannelsManager) Channels() []*Channel { return m.channels }

// Router returns the topology router shared by the channels.
func (m *ChannelsManager) Router() *routing.Router { return m.router }

// FindChannel returns the channel named name (original name) that the
// process, or failing that the host, is connected with; nil if none.
func (m *ChannelsManager) FindChannel(host *Host, process *model.Process, name string) *Channel {
	if process != nil {
		for _, ch := range m.channels {
			if ch.OriginalName() == name && ch.IsConnectedWithProcess(process) {
				return ch
			}
		}
	}
	for _, ch := range m.channels {
		if ch.OriginalName() == name && ch.IsConnectedWithHost(host) {
			return ch
		}
	}
	return nil
}

// HasDroppedMessages reports whether any channel evicted an unused message.
func (m *ChannelsManager) HasDroppedMessages() bool {
	for _, ch := range m.channels {
		if ch.DroppedMessages() > 0 {
			return true
		}
	}
	return false
}

// DroppedMessages returns the number of dropped messages per channel name.
func (m *ChannelsManager) DroppedMessages() map[string]int {
	out := make(map[string]int, len(m.channels))
	for _, ch := range m.channels {
		out[ch.Name()] = ch.DroppedMessages()
	}
	return out
}
