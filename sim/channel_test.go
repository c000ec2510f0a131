package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
	"github.com/QoPMLProject/AQoPA-sub000/sim/routing"
)

func sendAll(t *testing.T, ch *Channel, sender *Host, values ...model.Expression) {
	t.Helper()
	msgs := make([]*ChannelMessage, len(values))
	for i, v := range values {
		msgs[i] = NewChannelMessage(sender, v)
	}
	require.NoError(t, ch.SendMessages(sender, nil, msgs))
}

// waitOn registers the `in` instruction at the cursor of receiver.
func waitOn(t *testing.T, ctx *Context, ch *Channel, receiver *Host) *ChannelMessageRequest {
	t.Helper()
	ictx := receiver.CurrentInstructionsContext()
	instr := ictx.CurrentInstruction().(*model.Communication)
	req, err := NewChannelMessageRequest(ictx, instr, ctx.Checker)
	require.NoError(t, err)
	require.NoError(t, ch.WaitForMessage(req, nil))
	return req
}

func TestChannel_BufferedOverflow_DropsOldestUnused(t *testing.T) {
	// GIVEN a channel buffering two messages and no receivers
	sender := newTestHost("A.0", SchedulerFIFO, nil, nil)
	ch := connectAll(NewChannel("ch", 2), sender)

	// WHEN three messages are sent
	sendAll(t, ch, sender, call("m1"), call("m2"), call("m3"))

	// THEN the oldest one is dropped
	assert.Equal(t, 1, ch.DroppedMessages())
	require.Len(t, ch.Messages(), 2)
	assert.Equal(t, "m2()", ch.Messages()[0].Expression.String())
}

func TestChannel_Synchronous_NoReceiver_Dropped(t *testing.T) {
	sender := newTestHost("A.0", SchedulerFIFO, nil, nil)
	ch := connectAll(NewChannel("ch", SynchronousBuffer), sender)

	sendAll(t, ch, sender, call("m"))

	assert.True(t, ch.IsSynchronous())
	assert.Equal(t, 1, ch.DroppedMessages())
	assert.Empty(t, ch.Messages())
}

func TestChannel_Unlimited_KeepsEverything(t *testing.T) {
	sender := newTestHost("A.0", SchedulerFIFO, nil, nil)
	ch := connectAll(NewChannel("ch", UnlimitedBuffer), sender)

	sendAll(t, ch, sender, call("m1"), call("m2"), call("m3"))

	assert.Zero(t, ch.DroppedMessages())
	assert.Len(t, ch.Messages(), 3)
}

func TestChannel_WaitingReceiver_GetsMessage(t *testing.T) {
	// GIVEN a receiver parked on in(ch: y) of a synchronous channel
	sender := newTestHost("A.0", SchedulerFIFO, nil, nil)
	next := assign("z", id("y"))
	receiver := newTestHost("B.0", SchedulerFIFO, []model.Instruction{in("ch", "y"), next}, nil)
	ch := connectAll(NewChannel("ch", SynchronousBuffer), sender, receiver)
	ctx := NewContext([]*Host{sender, receiver}, NewChannelsManager([]*Channel{ch}, nil), nil, nil)
	waitOn(t, ctx, ch, receiver)
	require.True(t, ch.IsWaiting(receiver, receiver.CurrentInstruction().(*model.Communication)))

	// WHEN the sender sends
	sendAll(t, ch, sender, call("m"))

	// THEN the value is bound, the cursor advanced and nothing dropped
	y, ok := receiver.Variable("y")
	require.True(t, ok)
	assert.Equal(t, "m()", y.String())
	assert.Same(t, next, receiver.CurrentInstruction())
	assert.True(t, receiver.Changed())
	assert.Zero(t, ch.DroppedMessages())
	assert.Empty(t, ch.Requests())
}

func TestChannel_WaitIsIdempotent(t *testing.T) {
	receiver := newTestHost("B.0", SchedulerFIFO, []model.Instruction{in("ch", "y")}, nil)
	ch := connectAll(NewChannel("ch", UnlimitedBuffer), receiver)
	ctx := NewContext([]*Host{receiver}, NewChannelsManager([]*Channel{ch}, nil), nil, nil)

	waitOn(t, ctx, ch, receiver)
	waitOn(t, ctx, ch, receiver)

	assert.Len(t, ch.Requests(), 1)
}

func TestChannel_MultiVariableIn_WaitsForEnoughMessages(t *testing.T) {
	// GIVEN a receiver wanting two messages
	sender := newTestHost("A.0", SchedulerFIFO, nil, nil)
	receiver := newTestHost("B.0", SchedulerFIFO, []model.Instruction{in("ch", "a", "b")}, nil)
	ch := connectAll(NewChannel("ch", UnlimitedBuffer), sender, receiver)
	ctx := NewContext([]*Host{sender, receiver}, NewChannelsManager([]*Channel{ch}, nil), nil, nil)
	waitOn(t, ctx, ch, receiver)

	// WHEN only one message arrives
	sendAll(t, ch, sender, call("m1"))

	// THEN the request still waits
	_, bound := receiver.Variable("a")
	assert.False(t, bound)

	// WHEN the second one arrives
	sendAll(t, ch, sender, call("m2"))

	// THEN both are bound in order
	a, _ := receiver.Variable("a")
	b, _ := receiver.Variable("b")
	assert.Equal(t, "m1()", a.String())
	assert.Equal(t, "m2()", b.String())
}

func TestChannel_Filters_SelectMatchingTupleElements(t *testing.T) {
	// GIVEN a receiver accepting only tuples whose second element is its key
	sender := newTestHost("A.0", SchedulerFIFO, nil, nil)
	instr := in("ch", "msg")
	instr.Filters = []model.Filter{{Any: true}, {Expr: id("key")}}
	receiver := newTestHost("B.0", SchedulerFIFO, []model.Instruction{instr},
		map[string]model.Expression{"key": call("kb")})
	ch := connectAll(NewChannel("ch", UnlimitedBuffer), sender, receiver)
	ctx := NewContext([]*Host{sender, receiver}, NewChannelsManager([]*Channel{ch}, nil), nil, nil)
	req := waitOn(t, ctx, ch, receiver)
	assert.Equal(t, "kb()", req.Filters[1].Expr.String())

	// WHEN a tuple for someone else and then one for the receiver are sent
	sendAll(t, ch, sender,
		&model.Tuple{Elements: []model.Expression{call("m1"), call("kc")}},
		&model.Tuple{Elements: []model.Expression{call("m2"), call("kb")}})

	// THEN only the matching one is delivered
	msg, ok := receiver.Variable("msg")
	require.True(t, ok)
	assert.Equal(t, "(m2(),kb())", msg.String())
	assert.False(t, ch.Messages()[0].Used())
	assert.True(t, ch.Messages()[1].UsedBy(receiver))
}

func TestChannel_FinishedReceiver_RequestDiscarded(t *testing.T) {
	sender := newTestHost("A.0", SchedulerFIFO, nil, nil)
	receiver := newTestHost("B.0", SchedulerFIFO, []model.Instruction{in("ch", "y")}, nil)
	ch := connectAll(NewChannel("ch", UnlimitedBuffer), sender, receiver)
	ctx := NewContext([]*Host{sender, receiver}, NewChannelsManager([]*Channel{ch}, nil), nil, nil)
	waitOn(t, ctx, ch, receiver)
	receiver.FinishFailed("gone")

	sendAll(t, ch, sender, call("m"))

	_, bound := receiver.Variable("y")
	assert.False(t, bound)
	assert.Empty(t, ch.Requests())
	assert.False(t, ch.Messages()[0].Used())
}

func TestChannel_NotConnected_IsRuntimeError(t *testing.T) {
	sender := newTestHost("A.0", SchedulerFIFO, nil, nil)
	ch := NewChannel("ch", UnlimitedBuffer)

	err := ch.SendMessages(sender, nil, []*ChannelMessage{NewChannelMessage(sender, call("m"))})

	var rtErr *model.RuntimeError
	assert.ErrorAs(t, err, &rtErr)
}

func TestChannel_Topology_RecordsRoute(t *testing.T) {
	// GIVEN a line topology A - R - B
	router := routing.NewRouter()
	require.NoError(t, router.AddLink("net", "A.0", "R.0", 1))
	require.NoError(t, router.AddLink("net", "R.0", "B.0", 1))
	sender := newTestHost("A.0", SchedulerFIFO, nil, nil)
	receiver := newTestHost("B.0", SchedulerFIFO, []model.Instruction{in("ch", "y")}, nil)
	ch := connectAll(NewChannel("ch", UnlimitedBuffer), sender, receiver)
	ch.SetTopology("net", router)
	ctx := NewContext([]*Host{sender, receiver}, NewChannelsManager([]*Channel{ch}, router), nil, nil)
	waitOn(t, ctx, ch, receiver)

	// WHEN a message is delivered
	sendAll(t, ch, sender, call("m"))

	// THEN it carries the hop sequence
	assert.Equal(t, []string{"A.0", "R.0", "B.0"}, ch.Messages()[0].Routes[receiver])
}

func TestChannel_Topology_Unreachable_IsRuntimeError(t *testing.T) {
	router := routing.NewRouter()
	require.NoError(t, router.AddLink("net", "B.0", "A.0", 1))
	sender := newTestHost("A.0", SchedulerFIFO, nil, nil)
	receiver := newTestHost("B.0", SchedulerFIFO, []model.Instruction{in("ch", "y")}, nil)
	ch := connectAll(NewChannel("ch", UnlimitedBuffer), sender, receiver)
	ch.SetTopology("net", router)
	ctx := NewContext([]*Host{sender, receiver}, NewChannelsManager([]*Channel{ch}, router), nil, nil)
	waitOn(t, ctx, ch, receiver)

	err := ch.SendMessages(sender, nil, []*ChannelMessage{NewChannelMessage(sender, call("m"))})

	var rtErr *model.RuntimeError
	assert.ErrorAs(t, err, &rtErr)
}

func TestChannel_CloneAndNameIndexes(t *testing.T) {
	ch := NewChannel("ch", 3)
	clone := ch.Clone()
	clone.SetNameIndexes(2, 1)

	assert.Equal(t, "ch.2.1", clone.Name())
	assert.Equal(t, "ch", clone.OriginalName())
	assert.Equal(t, 3, clone.BufferSize())
	assert.Equal(t, "ch", ch.Name())
}

func TestChannelsManager_FindChannel_ProcessBeforeHost(t *testing.T) {
	// GIVEN ch bound at host level and a clone bound to the host's process
	p := process("P", in("ch", "y"))
	h := newTestHost("H.0", SchedulerFIFO, []model.Instruction{p}, nil)
	hostLevel := connectAll(NewChannel("ch", UnlimitedBuffer), h)
	perProcess := hostLevel.Clone()
	perProcess.SetNameIndexes(0, 0)
	perProcess.ConnectProcess(p)
	m := NewChannelsManager([]*Channel{hostLevel, perProcess}, nil)

	assert.Same(t, perProcess, m.FindChannel(h, p, "ch"))
	assert.Same(t, hostLevel, m.FindChannel(h, nil, "ch"))
	assert.Nil(t, m.FindChannel(h, nil, "other"))
	assert.NotNil(t, m.Router())
}
