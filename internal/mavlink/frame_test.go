package mavlink

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/frame"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	for _, version := range []int{1, 2} {
		var buf bytes.Buffer
		w := NewWriter(&buf, version)

		hb := &Heartbeat{CustomMode: 4, Type: TypeQuadrotor, Autopilot: AutopilotArduPilotMega, BaseMode: 0x81, SystemStatus: 4, MavlinkVersion: 3}
		gps := &GPSRawInt{Lat: 412345678, Lon: 289876543, Cog: 65535, FixType: 3, SatellitesVisible: 11}
		text := &StatusText{Severity: 6, Text: "PreArm: Hardware safety switch"}

		for _, m := range []Message{hb, gps, text} {
			if err := w.Send(1, 1, m); err != nil {
				t.Fatalf("v%d Send(%T) failed: %v", version, m, err)
			}
		}

		r := NewReader(&buf)
		for i, want := range []Message{hb, gps, text} {
			f, err := r.Next()
			if err != nil {
				t.Fatalf("v%d Next() #%d failed: %v", version, i, err)
			}
			if f.Version != version {
				t.Errorf("v%d frame #%d decoded as version %d", version, i, f.Version)
			}
			if f.Seq != uint8(i) {
				t.Errorf("v%d frame #%d seq = %d", version, i, f.Seq)
			}
			if f.SystemID != 1 || f.ComponentID != 1 {
				t.Errorf("v%d frame #%d origin = %d/%d", version, i, f.SystemID, f.ComponentID)
			}
			if f.Message.MessageID() != want.MessageID() {
				t.Errorf("v%d frame #%d id = %d, expected %d", version, i, f.Message.MessageID(), want.MessageID())
			}
		}

		if _, err := r.Next(); err != io.EOF {
			t.Errorf("v%d expected io.EOF at end of stream, got %v", version, err)
		}
	}
}

func TestReaderDecodesFields(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 2)

	in := &SysStatus{VoltageBattery: 12600, CurrentBattery: -1, BatteryRemaining: 87}
	if err := w.Send(7, 1, in); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	f, err := NewReader(&buf).Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	got, ok := f.Message.(*SysStatus)
	if !ok {
		t.Fatalf("expected *SysStatus, got %T", f.Message)
	}
	if got.VoltageBattery != 12600 || got.CurrentBattery != -1 || got.BatteryRemaining != 87 {
		t.Errorf("decoded %+v, expected %+v", got, in)
	}
	if f.SystemID != 7 {
		t.Errorf("SystemID = %d, expected 7", f.SystemID)
	}
}

func TestV2TrimsTrailingZeros(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(&buf, 2).Send(1, 1, &CommandAck{Command: 400}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	// Command 400 = 0x0190, result 0 is trimmed
	if buf.Bytes()[1] != 2 {
		t.Errorf("payload length = %d, expected 2", buf.Bytes()[1])
	}

	f, err := NewReader(&buf).Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	ack := f.Message.(*CommandAck)
	if ack.Command != 400 || ack.Result != 0 {
		t.Errorf("decoded %+v", ack)
	}
}

func TestReaderResyncsAfterGarbageAndBadChecksum(t *testing.T) {
	var good bytes.Buffer
	w := NewWriter(&good, 1)
	if err := w.Send(1, 1, &Heartbeat{Type: TypeQuadrotor}); err != nil {
		t.Fatal(err)
	}
	valid := good.Bytes()

	corrupt := append([]byte(nil), valid...)
	corrupt[len(corrupt)-1] ^= 0xFF

	stream := append([]byte{0x00, 0x13, 0x37}, corrupt...)
	stream = append(stream, 0xAA, 0xBB)
	stream = append(stream, valid...)

	r := NewReader(bytes.NewReader(stream))
	f, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if _, ok := f.Message.(*Heartbeat); !ok {
		t.Errorf("expected *Heartbeat, got %T", f.Message)
	}
	if r.Dropped() != 1 {
		t.Errorf("Dropped() = %d, expected 1", r.Dropped())
	}
}

func TestReaderTruncatedFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(&buf, 2).Send(1, 1, &Attitude{Roll: 0.1}); err != nil {
		t.Fatal(err)
	}
	truncated := buf.Bytes()[:buf.Len()-3]

	_, err := NewReader(bytes.NewReader(truncated)).Next()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestReaderSkipsStartMarkerWithUnknownID(t *testing.T) {
	var good bytes.Buffer
	if err := NewWriter(&good, 2).Send(1, 1, &Heartbeat{Type: TypeQuadrotor, MavlinkVersion: 3}); err != nil {
		t.Fatal(err)
	}

	// a stray v2 marker claiming 16 bytes of payload for message 0xCCBBAA
	stream := []byte{0xFD, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0xAA, 0xBB, 0xCC}
	stream = append(stream, good.Bytes()...)
	stream = append(stream, make([]byte, 8)...)

	r := NewReader(bytes.NewReader(stream))
	f, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	hb, ok := f.Message.(*Heartbeat)
	if !ok {
		t.Fatalf("expected *Heartbeat, got %T", f.Message)
	}
	if hb.Type != TypeQuadrotor || f.SystemID != 1 {
		t.Errorf("decoded %+v from %d", hb, f.SystemID)
	}
	if r.Dropped() < 1 {
		t.Errorf("Dropped() = %d, expected at least 1", r.Dropped())
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after padding, got %v", err)
	}
}

func TestReaderReturnsUntranslatedMessagesAsUnknown(t *testing.T) {
	var buf bytes.Buffer
	fw := &frame.Writer{ByteWriter: &buf, DialectRW: dialectRW}
	if err := fw.Initialize(); err != nil {
		t.Fatal(err)
	}
	mp := dialectRW.GetMessage(2)
	f := &frame.V2Frame{
		SystemID:    1,
		ComponentID: 1,
		Message:     mp.Write(&common.MessageSystemTime{TimeUnixUsec: 1700000000000000, TimeBootMs: 5000}, true),
	}
	f.Checksum = f.GenerateChecksum(mp.CRCExtra())
	if err := fw.Write(f); err != nil {
		t.Fatal(err)
	}

	got, err := NewReader(&buf).Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	u, ok := got.Message.(*Unknown)
	if !ok {
		t.Fatalf("expected *Unknown, got %T", got.Message)
	}
	if u.ID != 2 {
		t.Errorf("Unknown.ID = %d, expected 2", u.ID)
	}

	if err := NewWriter(io.Discard, 2).Send(1, 1, u); !errors.Is(err, ErrUnknownMessage) {
		t.Errorf("expected ErrUnknownMessage, got %v", err)
	}
}

func TestStatusTextStopsAtNUL(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(&buf, 2).Send(1, 1, &StatusText{Severity: 4, Text: "EKF variance\x00garbage"}); err != nil {
		t.Fatal(err)
	}
	f, err := NewReader(&buf).Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	m := f.Message.(*StatusText)
	if m.Text != "EKF variance" || m.Severity != 4 {
		t.Errorf("decoded %+v", m)
	}
}

func TestCommandBuilders(t *testing.T) {
	arm := ArmDisarm(1, 1, true)
	if arm.Command != CmdComponentArmDisarm || arm.Params[0] != 1 {
		t.Errorf("ArmDisarm(true) = %+v", arm)
	}
	if disarm := ArmDisarm(1, 1, false); disarm.Params[0] != 0 {
		t.Errorf("ArmDisarm(false) param1 = %v", disarm.Params[0])
	}

	reqs := RequestGPSStreams(1, 1)
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	first := reqs[0].(*CommandLong)
	if first.Command != CmdSetMessageInterval || first.Params[0] != float32(MsgIDGlobalPositionInt) || first.Params[1] != 1e6 {
		t.Errorf("unexpected interval request %+v", first)
	}

	if rx := StartRxPair(1, 1); rx.Command != CmdStartRxPair || rx.TargetSystem != 1 {
		t.Errorf("StartRxPair = %+v", rx)
	}
}

func TestSetParam(t *testing.T) {
	p, err := SetParam(1, 1, "RC_PAIR_TMO", 30)
	if err != nil {
		t.Fatalf("SetParam() error = %v", err)
	}
	if p.ParamID != "RC_PAIR_TMO" || p.ParamValue != 30 || p.ParamType != ParamTypeReal32 {
		t.Errorf("SetParam() = %+v", p)
	}

	for _, name := range []string{"", "THIS_NAME_IS_TOO_LONG"} {
		if _, err := SetParam(1, 1, name, 1); !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("SetParam(%q) error = %v, want ErrInvalidMessage", name, err)
		}
	}
}
