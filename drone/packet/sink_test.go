package packet

import "testing"

func TestSinkTrySendFullBuffer(t *testing.T) {
	sink, recv := NewSink(1)
	if !sink.TrySend(&Packet{}) {
		t.Fatal("first send into an empty buffer-1 sink should succeed")
	}
	if sink.TrySend(&Packet{}) {
		t.Error("second send into a full sink should fail")
	}
	<-recv
	if !sink.TrySend(&Packet{}) {
		t.Error("send should succeed again once the buffer has drained")
	}
}

func TestSinkTrySendAfterClose(t *testing.T) {
	sink, _ := NewSink(1)
	sink.Close()
	if sink.TrySend(&Packet{}) {
		t.Error("send on a closed sink should fail")
	}
}

func TestEventSinkTrySendAfterClose(t *testing.T) {
	sink, _ := NewEventSink(1)
	sink.Close()
	if sink.TrySend(PacketSent{}) {
		t.Error("send on a closed event sink should fail")
	}
}
