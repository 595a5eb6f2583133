// Package busipc implements the fixed set of typed publish/subscribe
// services that move window lifecycle, focus, layout, animation, command
// and heartbeat messages between the server and its clients.
//
// Every message is a fixed-size plain-data struct; Encode/Decode render it
// to and from a little-endian wire format so the same message can cross a
// real shared-memory boundary (a future Windows CreateFileMapping-backed
// transport) without any change to callers. The in-process Bus below is the
// transport this repo ships with today — see DESIGN.md for why a literal
// shared-memory transport was left unbuilt.
package busipc

import (
	"encoding/binary"
	"fmt"
)

// ProtocolVersion is embedded in every message for future wire migrations.
const ProtocolVersion uint32 = 1

// MaxPayload bounds the inline payload carried by a Data response.
const MaxPayload = 504

// Service names, one per fixed pub/sub channel.
const (
	ServiceEvents        = "GRID_EVENTS"
	ServiceWindowDetails = "GRID_WINDOW_DETAILS"
	ServiceFocusEvents   = "GRID_FOCUS_EVENTS"
	ServiceLayout        = "GRID_LAYOUT"
	ServiceAnimation     = "GRID_ANIMATION"
	ServiceCommands      = "GRID_COMMANDS"
	ServiceResponses     = "GRID_RESPONSES"
	ServiceHeartbeat     = "GRID_HEARTBEAT"
)

// AllServices lists every fixed service name, in the order the server
// brings them up and the client waits for them to become discoverable.
var AllServices = []string{
	ServiceEvents,
	ServiceWindowDetails,
	ServiceFocusEvents,
	ServiceLayout,
	ServiceAnimation,
	ServiceCommands,
	ServiceResponses,
	ServiceHeartbeat,
}

// EventType enumerates WindowEvent.EventType codes.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDestroyed
	EventMoved
	EventStateChanged
	EventMoveStart
	EventMoveStop
	EventResizeStart
	EventResizeStop
	EventContinuousMove
	EventContinuousResize
)

// WindowEvent is published on ServiceEvents for every lifecycle/move/resize
// transition the dispatcher observes.
type WindowEvent struct {
	ProtocolVersion    uint32
	EventType          EventType
	Hwnd               uint64
	Row                uint32
	Col                uint32
	GridTopLeftRow     uint32
	GridTopLeftCol     uint32
	GridBottomRightRow uint32
	GridBottomRightCol uint32
	RealX              int32
	RealY              int32
	RealWidth          uint32
	RealHeight         uint32
	MonitorID          uint32
	Timestamp          uint64
}

const windowEventSize = 4 + 1 + 8 + 4*6 + 4*2 + 4*2 + 4 + 8

// Encode renders e to its little-endian wire form.
func (e WindowEvent) Encode() []byte {
	buf := make([]byte, windowEventSize)
	o := 0
	o = putU32(buf, o, e.ProtocolVersion)
	buf[o] = byte(e.EventType)
	o++
	o = putU64(buf, o, e.Hwnd)
	o = putU32(buf, o, e.Row)
	o = putU32(buf, o, e.Col)
	o = putU32(buf, o, e.GridTopLeftRow)
	o = putU32(buf, o, e.GridTopLeftCol)
	o = putU32(buf, o, e.GridBottomRightRow)
	o = putU32(buf, o, e.GridBottomRightCol)
	o = putI32(buf, o, e.RealX)
	o = putI32(buf, o, e.RealY)
	o = putU32(buf, o, e.RealWidth)
	o = putU32(buf, o, e.RealHeight)
	o = putU32(buf, o, e.MonitorID)
	putU64(buf, o, e.Timestamp)

	return buf
}

// DecodeWindowEvent parses a WindowEvent from its wire form.
func DecodeWindowEvent(buf []byte) (WindowEvent, error) {
	if len(buf) < windowEventSize {
		return WindowEvent{}, fmt.Errorf("busipc: WindowEvent buffer too short: %d < %d", len(buf), windowEventSize)
	}

	var e WindowEvent
	o := 0
	e.ProtocolVersion, o = getU32(buf, o)
	e.EventType = EventType(buf[o])
	o++
	e.Hwnd, o = getU64(buf, o)
	e.Row, o = getU32(buf, o)
	e.Col, o = getU32(buf, o)
	e.GridTopLeftRow, o = getU32(buf, o)
	e.GridTopLeftCol, o = getU32(buf, o)
	e.GridBottomRightRow, o = getU32(buf, o)
	e.GridBottomRightCol, o = getU32(buf, o)
	e.RealX, o = getI32(buf, o)
	e.RealY, o = getI32(buf, o)
	e.RealWidth, o = getU32(buf, o)
	e.RealHeight, o = getU32(buf, o)
	e.MonitorID, o = getU32(buf, o)
	e.Timestamp, _ = getU64(buf, o)

	return e, nil
}

// Window detail flag bits.
const (
	FlagMinimized uint32 = 1 << iota
	FlagMaximized
	FlagForeground
	FlagTopmost
)

// WindowDetails is published on ServiceWindowDetails, a fuller snapshot than
// WindowEvent carries inline.
type WindowDetails struct {
	ProtocolVersion       uint32
	Hwnd                  uint64
	X, Y                  int32
	Width, Height         uint32
	VirtualRowTopLeft     uint32
	VirtualColTopLeft     uint32
	VirtualRowBottomRight uint32
	VirtualColBottomRight uint32
	MonitorID             uint32
	TitleHash             uint64
	Flags                 uint32
}

const windowDetailsSize = 4 + 8 + 4*2 + 4*2 + 4*4 + 4 + 8 + 4

// Encode renders d to its little-endian wire form.
func (d WindowDetails) Encode() []byte {
	buf := make([]byte, windowDetailsSize)
	o := 0
	o = putU32(buf, o, d.ProtocolVersion)
	o = putU64(buf, o, d.Hwnd)
	o = putI32(buf, o, d.X)
	o = putI32(buf, o, d.Y)
	o = putU32(buf, o, d.Width)
	o = putU32(buf, o, d.Height)
	o = putU32(buf, o, d.VirtualRowTopLeft)
	o = putU32(buf, o, d.VirtualColTopLeft)
	o = putU32(buf, o, d.VirtualRowBottomRight)
	o = putU32(buf, o, d.VirtualColBottomRight)
	o = putU32(buf, o, d.MonitorID)
	o = putU64(buf, o, d.TitleHash)
	putU32(buf, o, d.Flags)

	return buf
}

// DecodeWindowDetails parses a WindowDetails from its wire form.
func DecodeWindowDetails(buf []byte) (WindowDetails, error) {
	if len(buf) < windowDetailsSize {
		return WindowDetails{}, fmt.Errorf("busipc: WindowDetails buffer too short: %d < %d", len(buf), windowDetailsSize)
	}

	var d WindowDetails
	o := 0
	d.ProtocolVersion, o = getU32(buf, o)
	d.Hwnd, o = getU64(buf, o)
	d.X, o = getI32(buf, o)
	d.Y, o = getI32(buf, o)
	d.Width, o = getU32(buf, o)
	d.Height, o = getU32(buf, o)
	d.VirtualRowTopLeft, o = getU32(buf, o)
	d.VirtualColTopLeft, o = getU32(buf, o)
	d.VirtualRowBottomRight, o = getU32(buf, o)
	d.VirtualColBottomRight, o = getU32(buf, o)
	d.MonitorID, o = getU32(buf, o)
	d.TitleHash, o = getU64(buf, o)
	d.Flags, _ = getU32(buf, o)

	return d, nil
}

// FocusEventType enumerates WindowFocusEvent.EventType codes.
type FocusEventType uint8

const (
	FocusEventFocused FocusEventType = iota
	FocusEventDefocused
)

// WindowFocusEvent is published on ServiceFocusEvents whenever foreground
// changes.
type WindowFocusEvent struct {
	ProtocolVersion uint32
	EventType       FocusEventType
	Hwnd            uint64
	ProcessID       uint32
	Timestamp       uint64
	AppNameHash     uint64
	WindowTitleHash uint64
	Reserved        [2]byte
}

const windowFocusEventSize = 4 + 1 + 8 + 4 + 8 + 8 + 8 + 2

// Encode renders f to its little-endian wire form.
func (f WindowFocusEvent) Encode() []byte {
	buf := make([]byte, windowFocusEventSize)
	o := 0
	o = putU32(buf, o, f.ProtocolVersion)
	buf[o] = byte(f.EventType)
	o++
	o = putU64(buf, o, f.Hwnd)
	o = putU32(buf, o, f.ProcessID)
	o = putU64(buf, o, f.Timestamp)
	o = putU64(buf, o, f.AppNameHash)
	o = putU64(buf, o, f.WindowTitleHash)
	copy(buf[o:], f.Reserved[:])

	return buf
}

// DecodeWindowFocusEvent parses a WindowFocusEvent from its wire form.
func DecodeWindowFocusEvent(buf []byte) (WindowFocusEvent, error) {
	if len(buf) < windowFocusEventSize {
		return WindowFocusEvent{}, fmt.Errorf("busipc: WindowFocusEvent buffer too short: %d < %d", len(buf), windowFocusEventSize)
	}

	var f WindowFocusEvent
	o := 0
	f.ProtocolVersion, o = getU32(buf, o)
	f.EventType = FocusEventType(buf[o])
	o++
	f.Hwnd, o = getU64(buf, o)
	f.ProcessID, o = getU32(buf, o)
	f.Timestamp, o = getU64(buf, o)
	f.AppNameHash, o = getU64(buf, o)
	f.WindowTitleHash, o = getU64(buf, o)
	copy(f.Reserved[:], buf[o:o+2])

	return f, nil
}

// CommandType enumerates WindowCommand.CommandType codes.
type CommandType uint32

const (
	CommandGetWindowList CommandType = iota + 1
	CommandGetGridState
	CommandGetMonitorList
	CommandAssignToVirtualCell
	CommandAssignToMonitorCell
	CommandStartAnimation
	CommandSaveLayout
	CommandApplyLayout
	CommandFocusWindow
)

// WindowCommand is published on ServiceCommands by clients.
type WindowCommand struct {
	ProtocolVersion     uint32
	RequestID           uint64
	CommandType         CommandType
	Hwnd                uint64
	TargetRow           uint32
	TargetCol           uint32
	MonitorID           uint32
	LayoutID            uint32
	AnimationDurationMs uint32
	EasingType          uint8
	Reserved            [3]byte
}

const windowCommandSize = 4 + 8 + 4 + 8 + 4*5 + 1 + 3

// Encode renders c to its little-endian wire form.
func (c WindowCommand) Encode() []byte {
	buf := make([]byte, windowCommandSize)
	o := 0
	o = putU32(buf, o, c.ProtocolVersion)
	o = putU64(buf, o, c.RequestID)
	o = putU32(buf, o, uint32(c.CommandType))
	o = putU64(buf, o, c.Hwnd)
	o = putU32(buf, o, c.TargetRow)
	o = putU32(buf, o, c.TargetCol)
	o = putU32(buf, o, c.MonitorID)
	o = putU32(buf, o, c.LayoutID)
	o = putU32(buf, o, c.AnimationDurationMs)
	buf[o] = c.EasingType
	o++
	copy(buf[o:], c.Reserved[:])

	return buf
}

// DecodeWindowCommand parses a WindowCommand from its wire form.
func DecodeWindowCommand(buf []byte) (WindowCommand, error) {
	if len(buf) < windowCommandSize {
		return WindowCommand{}, fmt.Errorf("busipc: WindowCommand buffer too short: %d < %d", len(buf), windowCommandSize)
	}

	var c WindowCommand
	o := 0
	c.ProtocolVersion, o = getU32(buf, o)
	c.RequestID, o = getU64(buf, o)
	var ct uint32
	ct, o = getU32(buf, o)
	c.CommandType = CommandType(ct)
	c.Hwnd, o = getU64(buf, o)
	c.TargetRow, o = getU32(buf, o)
	c.TargetCol, o = getU32(buf, o)
	c.MonitorID, o = getU32(buf, o)
	c.LayoutID, o = getU32(buf, o)
	c.AnimationDurationMs, o = getU32(buf, o)
	c.EasingType = buf[o]
	o++
	copy(c.Reserved[:], buf[o:o+3])

	return c, nil
}

// ResponseType enumerates WindowResponse.ResponseType codes.
type ResponseType uint32

const (
	ResponseAck ResponseType = iota + 1
	ResponseError
	ResponseData
)

// WindowResponse is published on ServiceResponses, correlated to its
// originating WindowCommand by RequestID.
type WindowResponse struct {
	ProtocolVersion uint32
	RequestID       uint64
	ResponseType    ResponseType
	PayloadLen      uint32
	Payload         [MaxPayload]byte
}

const windowResponseSize = 4 + 8 + 4 + 4 + MaxPayload

// Encode renders r to its little-endian wire form.
func (r WindowResponse) Encode() []byte {
	buf := make([]byte, windowResponseSize)
	o := 0
	o = putU32(buf, o, r.ProtocolVersion)
	o = putU64(buf, o, r.RequestID)
	o = putU32(buf, o, uint32(r.ResponseType))
	o = putU32(buf, o, r.PayloadLen)
	copy(buf[o:], r.Payload[:])

	return buf
}

// DecodeWindowResponse parses a WindowResponse from its wire form.
func DecodeWindowResponse(buf []byte) (WindowResponse, error) {
	if len(buf) < windowResponseSize {
		return WindowResponse{}, fmt.Errorf("busipc: WindowResponse buffer too short: %d < %d", len(buf), windowResponseSize)
	}

	var r WindowResponse
	o := 0
	r.ProtocolVersion, o = getU32(buf, o)
	r.RequestID, o = getU64(buf, o)
	var rt uint32
	rt, o = getU32(buf, o)
	r.ResponseType = ResponseType(rt)
	r.PayloadLen, o = getU32(buf, o)
	copy(r.Payload[:], buf[o:o+MaxPayload])

	return r, nil
}

// NewDataResponse builds a ResponseData WindowResponse carrying payload,
// truncating to MaxPayload if necessary.
func NewDataResponse(requestID uint64, payload []byte) WindowResponse {
	r := WindowResponse{ProtocolVersion: ProtocolVersion, RequestID: requestID, ResponseType: ResponseData}
	n := copy(r.Payload[:], payload)
	r.PayloadLen = uint32(n)

	return r
}

// HeartbeatFlag enumerates Heartbeat.Flag codes.
type HeartbeatFlag uint8

const (
	HeartbeatAlive HeartbeatFlag = iota
	HeartbeatShutdown
)

// Heartbeat is published on ServiceHeartbeat at a bounded period.
type Heartbeat struct {
	ProtocolVersion uint32
	Sequence        uint64
	Timestamp       uint64
	Flag            HeartbeatFlag
}

const heartbeatSize = 4 + 8 + 8 + 1

// Encode renders h to its little-endian wire form.
func (h Heartbeat) Encode() []byte {
	buf := make([]byte, heartbeatSize)
	o := 0
	o = putU32(buf, o, h.ProtocolVersion)
	o = putU64(buf, o, h.Sequence)
	o = putU64(buf, o, h.Timestamp)
	buf[o] = byte(h.Flag)

	return buf
}

// DecodeHeartbeat parses a Heartbeat from its wire form.
func DecodeHeartbeat(buf []byte) (Heartbeat, error) {
	if len(buf) < heartbeatSize {
		return Heartbeat{}, fmt.Errorf("busipc: Heartbeat buffer too short: %d < %d", len(buf), heartbeatSize)
	}

	var h Heartbeat
	o := 0
	h.ProtocolVersion, o = getU32(buf, o)
	h.Sequence, o = getU64(buf, o)
	h.Timestamp, o = getU64(buf, o)
	h.Flag = HeartbeatFlag(buf[o])

	return h, nil
}

// LayoutMessage carries a saved-layout definition over ServiceLayout,
// bidirectionally: clients publish it to request a save/apply, the server
// publishes it back to announce the negotiated grid configuration.
type LayoutMessage struct {
	ProtocolVersion uint32
	LayoutID        uint32
	NameHash        uint64
	Rows            uint32
	Cols            uint32
	VirtualCols     uint32
	EntryCount      uint32
}

const layoutMessageSize = 4 + 4 + 8 + 4 + 4 + 4 + 4

// Encode renders l to its little-endian wire form.
func (l LayoutMessage) Encode() []byte {
	buf := make([]byte, layoutMessageSize)
	o := 0
	o = putU32(buf, o, l.ProtocolVersion)
	o = putU32(buf, o, l.LayoutID)
	o = putU64(buf, o, l.NameHash)
	o = putU32(buf, o, l.Rows)
	o = putU32(buf, o, l.Cols)
	o = putU32(buf, o, l.VirtualCols)
	putU32(buf, o, l.EntryCount)

	return buf
}

// DecodeLayoutMessage parses a LayoutMessage from its wire form.
func DecodeLayoutMessage(buf []byte) (LayoutMessage, error) {
	if len(buf) < layoutMessageSize {
		return LayoutMessage{}, fmt.Errorf("busipc: LayoutMessage buffer too short: %d < %d", len(buf), layoutMessageSize)
	}

	var l LayoutMessage
	o := 0
	l.ProtocolVersion, o = getU32(buf, o)
	l.LayoutID, o = getU32(buf, o)
	l.NameHash, o = getU64(buf, o)
	l.Rows, o = getU32(buf, o)
	l.Cols, o = getU32(buf, o)
	l.VirtualCols, o = getU32(buf, o)
	l.EntryCount, _ = getU32(buf, o)

	return l, nil
}

// AnimationCommand carries a StartAnimation request over ServiceAnimation,
// parallel to WindowCommand's animation fields but standalone so a client
// can drive animations without round-tripping a full command/response pair.
type AnimationCommand struct {
	ProtocolVersion uint32
	Hwnd            uint64
	TargetX         int32
	TargetY         int32
	TargetWidth     uint32
	TargetHeight    uint32
	DurationMs      uint32
	EasingType      uint8
	Reserved        [3]byte
}

const animationCommandSize = 4 + 8 + 4 + 4 + 4 + 4 + 4 + 1 + 3

// Encode renders a to its little-endian wire form.
func (a AnimationCommand) Encode() []byte {
	buf := make([]byte, animationCommandSize)
	o := 0
	o = putU32(buf, o, a.ProtocolVersion)
	o = putU64(buf, o, a.Hwnd)
	o = putI32(buf, o, a.TargetX)
	o = putI32(buf, o, a.TargetY)
	o = putU32(buf, o, a.TargetWidth)
	o = putU32(buf, o, a.TargetHeight)
	o = putU32(buf, o, a.DurationMs)
	buf[o] = a.EasingType
	o++
	copy(buf[o:], a.Reserved[:])

	return buf
}

// DecodeAnimationCommand parses an AnimationCommand from its wire form.
func DecodeAnimationCommand(buf []byte) (AnimationCommand, error) {
	if len(buf) < animationCommandSize {
		return AnimationCommand{}, fmt.Errorf("busipc: AnimationCommand buffer too short: %d < %d", len(buf), animationCommandSize)
	}

	var a AnimationCommand
	o := 0
	a.ProtocolVersion, o = getU32(buf, o)
	a.Hwnd, o = getU64(buf, o)
	a.TargetX, o = getI32(buf, o)
	a.TargetY, o = getI32(buf, o)
	a.TargetWidth, o = getU32(buf, o)
	a.TargetHeight, o = getU32(buf, o)
	a.DurationMs, o = getU32(buf, o)
	a.EasingType = buf[o]
	o++
	copy(a.Reserved[:], buf[o:o+3])

	return a, nil
}

func putU32(buf []byte, o int, v uint32) int {
	binary.LittleEndian.PutUint32(buf[o:], v)

	return o + 4
}

func putU64(buf []byte, o int, v uint64) int {
	binary.LittleEndian.PutUint64(buf[o:], v)

	return o + 8
}

func putI32(buf []byte, o int, v int32) int {
	binary.LittleEndian.PutUint32(buf[o:], uint32(v))

	return o + 4
}

func getU32(buf []byte, o int) (uint32, int) {
	return binary.LittleEndian.Uint32(buf[o:]), o + 4
}

func getU64(buf []byte, o int) (uint64, int) {
	return binary.LittleEndian.Uint64(buf[o:]), o + 8
}

func getI32(buf []byte, o int) (int32, int) {
	return int32(binary.LittleEndian.Uint32(buf[o:])), o + 4
}
