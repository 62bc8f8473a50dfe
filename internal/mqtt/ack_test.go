package mqtt

import "testing"

func TestPubAckOmitsReasonAndPropsOnSuccess(t *testing.T) {
	ack := &PubAck{PacketID: 5, ReasonCode: PubAckSuccess}
	raw := ack.Encode()

	// fixed header(1) + remaining length(1) + packet id(2) == 4 bytes total
	if len(raw) != 4 {
		t.Fatalf("expected minimal 4-byte encoding for success, got %d bytes: %x", len(raw), raw)
	}

	got, err := DecodePubAck(raw)
	if err != nil {
		t.Fatalf("DecodePubAck: %v", err)
	}
	if got.PacketID != 5 || got.ReasonCode != PubAckSuccess {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestPubAckRoundTripWithReasonCode(t *testing.T) {
	ack := &PubAck{PacketID: 5, ReasonCode: PubAckNoMatchingSubscribers}
	got, err := DecodePubAck(ack.Encode())
	if err != nil {
		t.Fatalf("DecodePubAck: %v", err)
	}
	if got.ReasonCode != PubAckNoMatchingSubscribers {
		t.Fatalf("expected reason code to survive, got %v", got.ReasonCode)
	}
}

func TestPubRelSetsReservedFlags(t *testing.T) {
	rel := &PubRel{PacketID: 5, ReasonCode: PubRelSuccess}
	raw := rel.Encode()
	if raw[0]&0x0F != 0x02 {
		t.Fatalf("expected reserved flags 0010, got %x", raw[0]&0x0F)
	}

	got, err := DecodePubRel(raw)
	if err != nil {
		t.Fatalf("DecodePubRel: %v", err)
	}
	if got.PacketID != 5 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestPubRecAndPubCompRoundTrip(t *testing.T) {
	rec := &PubRec{PacketID: 8, ReasonCode: PubAckSuccess}
	gotRec, err := DecodePubRec(rec.Encode())
	if err != nil || gotRec.PacketID != 8 {
		t.Fatalf("PubRec round trip failed: %+v, err %v", gotRec, err)
	}

	comp := &PubComp{PacketID: 8, ReasonCode: PubRelPacketIdentifierNotFound}
	gotComp, err := DecodePubComp(comp.Encode())
	if err != nil || gotComp.ReasonCode != PubRelPacketIdentifierNotFound {
		t.Fatalf("PubComp round trip failed: %+v, err %v", gotComp, err)
	}
}
