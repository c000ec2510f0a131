package sim

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/QoPMLProject/AQoPA-sub000/sim/expression"
	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
	"github.com/QoPMLProject/AQoPA-sub000/sim/routing"
)

// Buffer sizes with special meaning.
const (
	// UnlimitedBuffer keeps every message until the simulation ends.
	UnlimitedBuffer = -1
	// SynchronousBuffer drops every message that is not delivered in the
	// matching pass that follows its send.
	SynchronousBuffer = 0
)

// ChannelMessage is one value in flight on a channel.
type ChannelMessage struct {
	Sender     *Host
	Expression model.Expression

	usedBy map[*Host]bool
	// Routes holds, per receiver, the hop sequence on the channel's topology.
	Routes map[*Host][]string
}

// NewChannelMessage wraps a reduced expression sent by sender.
func NewChannelMessage(sender *Host, expr model.Expression) *ChannelMessage {
	return &ChannelMessage{
		Sender:     sender,
		Expression: expr,
		usedBy:     make(map[*Host]bool),
		Routes:     make(map[*Host][]string),
	}
}

// UsedBy reports whether receiver already consumed the message.
func (m *ChannelMessage) UsedBy(receiver *Host) bool { return m.usedBy[receiver] }

// Used reports whether anyone consumed the message.
func (m *ChannelMessage) Used() bool { return len(m.usedBy) > 0 }

// ChannelMessageRequest is a pending `in` instruction waiting for messages.
type ChannelMessageRequest struct {
	Receiver    *Host
	Instruction *model.Communication
	// Context is where the `in` instruction sits; its cursor is advanced when
	// the request is satisfied.
	Context *InstructionsContext
	// Filters are the instruction's filters populated with the receiver's
	// variables at the time the request was built.
	Filters []model.Filter
}

// NewChannelMessageRequest builds a request for the `in` instruction at the
// cursor of ictx, populating its filters with the receiver's variables.
func NewChannelMessageRequest(ictx *InstructionsContext, instr *model.Communication,
	checker *expression.Checker) (*ChannelMessageRequest, error) {
	receiver := ictx.Host()
	filters := make([]model.Filter, len(instr.Filters))
	for i, f := range instr.Filters {
		if f.Any {
			filters[i] = model.Filter{Any: true}
			continue
		}
		value, err := checker.PopulateAndReduce(f.Expr, receiver)
		if err != nil {
			return nil, err
		}
		filters[i] = model.Filter{Expr: value}
	}
	return &ChannelMessageRequest{
		Receiver:    receiver,
		Instruction: instr,
		Context:     ictx,
		Filters:     filters,
	}, nil
}

// Wanted returns how many messages satisfy the request.
func (r *ChannelMessageRequest) Wanted() int { return len(r.Instruction.Variables) }

// Accepts applies the positional filters. A tuple message is matched element
// by element; any other message is matched by a single filter.
func (r *ChannelMessageRequest) Accepts(msg *ChannelMessage) bool {
	if len(r.Filters) == 0 {
		return true
	}
	elements := []model.Expression{msg.Expression}
	if tuple, ok := msg.Expression.(*model.Tuple); ok {
		elements = tuple.Elements
	}
	if len(r.Filters) > len(elements) {
		return false
	}
	for i, f := range r.Filters {
		if f.Any {
			continue
		}
		if !expression.AreEqual(f.Expr, elements[i]) {
			return false
		}
	}
	return true
}

func (r *ChannelMessageRequest) samePending(other *ChannelMessageRequest) bool {
	return r.Receiver == other.Receiver && r.Instruction == other.Instruction
}

// Channel is a named, possibly buffered message medium shared by hosts.
// Its name carries two repetition indexes (ch.<host>.<process>).
type Channel struct {
	name       string
	bufferSize int
	topology   string
	router     *routing.Router

	hosts     map[*Host]bool
	processes map[*model.Process]bool

	messages []*ChannelMessage
	requests []*ChannelMessageRequest
	dropped  int
}

// NewChannel creates a channel. bufferSize is UnlimitedBuffer (any negative
// value), SynchronousBuffer, or a positive FIFO capacity.
func NewChannel(name string, bufferSize int) *Channel {
	if bufferSize < 0 {
		bufferSize = UnlimitedBuffer
	}
	return &Channel{
		name:       name,
		bufferSize: bufferSize,
		hosts:      make(map[*Host]bool),
		processes:  make(map[*model.Process]bool),
	}
}

// Clone returns an unconnected copy with the same configuration and no
// messages. Used by the builder for repeated channels.
func (c *Channel) Clone() *Channel {
	cl := NewChannel(c.name, c.bufferSize)
	cl.topology = c.topology
	cl.router = c.router
	return cl
}

// Name returns the full channel name.
func (c *Channel) Name() string { return c.name }

// OriginalName returns the declared name without repetition indexes.
func (c *Channel) OriginalName() string {
	if i := strings.IndexByte(c.name, '.'); i >= 0 {
		return c.name[:i]
	}
	return c.name
}

// SetNameIndexes sets the host and process repetition indexes.
func (c *Channel) SetNameIndexes(hostIndex, processIndex int) {
	c.name = fmt.Sprintf("%s.%d.%d", c.OriginalName(), hostIndex, processIndex)
}

func (c *Channel) String() string { return c.name }

// BufferSize returns the configured capacity.
func (c *Channel) BufferSize() int { return c.bufferSize }

// IsSynchronous reports whether undelivered messages are dropped immediately.
func (c *Channel) IsSynchronous() bool { return c.bufferSize == SynchronousBuffer }

// SetTopology attaches the channel to a routing topology.
func (c *Channel) SetTopology(topology string, router *routing.Router) {
	c.topology = topology
	c.router = router
}

// Topology returns the routing topology name, empty if none.
func (c *Channel) Topology() string { return c.topology }

// ConnectHost allows host to use the channel.
func (c *Channel) ConnectHost(h *Host) { c.hosts[h] = true }

// ConnectProcess allows process to use the channel.
func (c *Channel) ConnectProcess(p *model.Process) { c.processes[p] = true }

// IsConnectedWithHost reports whether host is connected directly.
func (c *Channel) IsConnectedWithHost(h *Host) bool { return c.hosts[h] }

// IsConnectedWithProcess reports whether process is connected.
func (c *Channel) IsConnectedWithProcess(p *model.Process) bool { return p != nil && c.processes[p] }

func (c *Channel) connected(h *Host, p *model.Process) bool {
	return c.IsConnectedWithHost(h) || c.IsConnectedWithProcess(p)
}

// Messages returns the in-flight messages in arrival order.
func (c *Channel) Messages() []*ChannelMessage { return c.messages }

// Requests returns the pending requests in arrival order.
func (c *Channel) Requests() []*ChannelMessageRequest { return c.requests }

// DroppedMessages returns how many messages were evicted without being used.
func (c *Channel) DroppedMessages() int { return c.dropped }

// SendMessages puts messages in flight and runs a matching pass. process is
// the sending process, nil for host-level instructions.
func (c *Channel) SendMessages(sender *Host, process *model.Process, messages []*ChannelMessage) error {
	if !c.connected(sender, process) {
		return model.NewRuntimeError("host %s is not connected with channel %s", sender, c)
	}
	c.messages = append(c.messages, messages...)
	logrus.Debugf("channel %s: %s sent %d message(s)", c, sender, len(messages))
	return c.bindSentExpressionsWithReceivers()
}

// WaitForMessage registers request and runs a matching pass. Registering the
// same instruction for the same receiver twice is a no-op.
func (c *Channel) WaitForMessage(request *ChannelMessageRequest, process *model.Process) error {
	if !c.connected(request.Receiver, process) {
		return model.NewRuntimeError("host %s is not connected with channel %s", request.Receiver, c)
	}
	pending := false
	for _, r := range c.requests {
		if r.samePending(request) {
			pending = true
			break
		}
	}
	if !pending {
		c.requests = append(c.requests, request)
	}
	return c.bindSentExpressionsWithReceivers()
}

// IsWaiting reports whether the instruction of receiver has a pending request.
func (c *Channel) IsWaiting(receiver *Host, instr *model.Communication) bool {
	for _, r := range c.requests {
		if r.Receiver == receiver && r.Instruction == instr {
			return true
		}
	}
	return false
}

// bindSentExpressionsWithReceivers delivers in-flight messages to pending
// requests in FIFO order, then applies buffer eviction. The first request of
// each receiver wins within one pass so a host's instruction order holds.
// Requests of hosts that already stopped are discarded.
func (c *Channel) bindSentExpressionsWithReceivers() error {
	satisfied := make(map[*Host]bool)
	remaining := c.requests[:0:0]
	for _, req := range c.requests {
		if req.Receiver.Finished() {
			continue
		}
		if satisfied[req.Receiver] {
			remaining = append(remaining, req)
			continue
		}
		var chosen []*ChannelMessage
		for _, msg := range c.messages {
			if len(chosen) == req.Wanted() {
				break
			}
			if msg.UsedBy(req.Receiver) || !req.Accepts(msg) {
				continue
			}
			chosen = append(chosen, msg)
		}
		if len(chosen) < req.Wanted() {
			remaining = append(remaining, req)
			continue
		}
		if err := c.deliver(req, chosen); err != nil {
			return err
		}
		satisfied[req.Receiver] = true
	}
	c.requests = remaining
	c.evict()
	return nil
}

func (c *Channel) deliver(req *ChannelMessageRequest, messages []*ChannelMessage) error {
	for i, msg := range messages {
		if c.topology != "" {
			hops, err := c.router.Path(c.topology, msg.Sender.Name(), req.Receiver.Name())
			if err != nil {
				return err
			}
			msg.Routes[req.Receiver] = hops
		}
		req.Receiver.SetVariable(req.Instruction.Variables[i], msg.Expression.Clone())
		msg.usedBy[req.Receiver] = true
	}
	logrus.Debugf("channel %s: delivered %d message(s) to %s", c, len(messages), req.Receiver)
	req.Context.GotoNextInstruction()
	req.Receiver.MarkChanged()
	return nil
}

// evict trims the buffer: synchronous channels keep nothing, bounded ones keep
// the most recent bufferSize messages, unlimited ones keep everything.
func (c *Channel) evict() {
	keep := len(c.messages)
	switch {
	case c.bufferSize == UnlimitedBuffer:
		return
	case c.bufferSize == SynchronousBuffer:
		keep = 0
	case keep > c.bufferSize:
		keep = c.bufferSize
	}
	cut := len(c.messages) - keep
	for _, msg := range c.messages[:cut] {
		if !msg.Used() {
			c.dropped++
			logrus.Debugf("channel %s: dropped message %s from %s", c, msg.Expression, msg.Sender)
		}
	}
	c.messages = append([]*ChannelMessage(nil), c.messages[cut:]...)
}
