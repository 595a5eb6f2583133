package busipc

import "testing"

func TestWindowEventRoundTrip(t *testing.T) {
	e := WindowEvent{
		ProtocolVersion:    ProtocolVersion,
		EventType:          EventMoved,
		Hwnd:               0xdeadbeef,
		Row:                3,
		Col:                5,
		GridTopLeftRow:     1,
		GridTopLeftCol:     2,
		GridBottomRightRow: 3,
		GridBottomRightCol: 4,
		RealX:              -10,
		RealY:              20,
		RealWidth:          640,
		RealHeight:         480,
		MonitorID:          1,
		Timestamp:          123456789,
	}

	got, err := DecodeWindowEvent(e.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got != e {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, e)
	}
}

func TestWindowDetailsRoundTrip(t *testing.T) {
	d := WindowDetails{
		ProtocolVersion: ProtocolVersion,
		Hwnd:            42,
		X:               -100,
		Y:               200,
		Width:           800,
		Height:          600,
		MonitorID:       2,
		TitleHash:       0x1122334455667788,
		Flags:           FlagMaximized | FlagForeground,
	}

	got, err := DecodeWindowDetails(d.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got != d {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, d)
	}
}

func TestWindowFocusEventRoundTrip(t *testing.T) {
	f := WindowFocusEvent{
		ProtocolVersion: ProtocolVersion,
		EventType:       FocusEventFocused,
		Hwnd:            7,
		ProcessID:       1234,
		Timestamp:       999,
		AppNameHash:     0xaa,
		WindowTitleHash: 0xbb,
	}

	got, err := DecodeWindowFocusEvent(f.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got != f {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, f)
	}
}

func TestWindowCommandRoundTrip(t *testing.T) {
	c := WindowCommand{
		ProtocolVersion:     ProtocolVersion,
		RequestID:           555,
		CommandType:         CommandAssignToVirtualCell,
		Hwnd:                9,
		TargetRow:           2,
		TargetCol:           3,
		MonitorID:           1,
		AnimationDurationMs: 250,
		EasingType:          2,
	}

	got, err := DecodeWindowCommand(c.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got != c {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, c)
	}
}

func TestWindowResponseRoundTrip(t *testing.T) {
	r := NewDataResponse(555, []byte("hello"))

	got, err := DecodeWindowResponse(r.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got.RequestID != 555 || got.ResponseType != ResponseData || got.PayloadLen != 5 {
		t.Fatalf("unexpected response: %+v", got)
	}
	if string(got.Payload[:got.PayloadLen]) != "hello" {
		t.Fatalf("payload mismatch: %q", got.Payload[:got.PayloadLen])
	}
}

func TestHeartbeatRoundTrip(t *testing.T) {
	h := Heartbeat{ProtocolVersion: ProtocolVersion, Sequence: 101, Timestamp: 42, Flag: HeartbeatShutdown}

	got, err := DecodeHeartbeat(h.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestLayoutMessageRoundTrip(t *testing.T) {
	l := LayoutMessage{ProtocolVersion: ProtocolVersion, LayoutID: 3, NameHash: 0xcafe, Rows: 8, Cols: 12, VirtualCols: 24, EntryCount: 4}

	got, err := DecodeLayoutMessage(l.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got != l {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, l)
	}
}

func TestAnimationCommandRoundTrip(t *testing.T) {
	a := AnimationCommand{
		ProtocolVersion: ProtocolVersion,
		Hwnd:            11,
		TargetX:         400,
		TargetY:         300,
		TargetWidth:     800,
		TargetHeight:    600,
		DurationMs:      500,
		EasingType:      3,
	}

	got, err := DecodeAnimationCommand(a.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got != a {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, a)
	}
}

func TestDecodeTooShortBufferErrors(t *testing.T) {
	if _, err := DecodeWindowEvent(make([]byte, 3)); err == nil {
		t.Fatal("expected error for short buffer")
	}
	if _, err := DecodeHeartbeat(nil); err == nil {
		t.Fatal("expected error for nil buffer")
	}
}
