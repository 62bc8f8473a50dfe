package mqtt

import "testing"

func TestSubscribeRoundTrip(t *testing.T) {
	s := &Subscribe{
		PacketID: 1,
		Filters: []SubscribeFilter{
			{Path: "sensors/+/temp", QoS: QoS1},
			{Path: "alerts/#", QoS: QoS2, NoLocal: true, RetainAsPublished: true, RetainHandling: RetainHandlingDoNotSend},
		},
	}

	got, err := DecodeSubscribe(s.Encode())
	if err != nil {
		t.Fatalf("DecodeSubscribe: %v", err)
	}
	if len(got.Filters) != 2 {
		t.Fatalf("expected 2 filters, got %d", len(got.Filters))
	}
	if got.Filters[1].QoS != QoS2 || !got.Filters[1].NoLocal || !got.Filters[1].RetainAsPublished {
		t.Fatalf("filter options mismatch: %+v", got.Filters[1])
	}
	if got.Filters[1].RetainHandling != RetainHandlingDoNotSend {
		t.Fatalf("retain handling mismatch: %v", got.Filters[1].RetainHandling)
	}
}

func TestSubscribeRejectsEmptyFilterList(t *testing.T) {
	s := &Subscribe{PacketID: 1}
	if _, err := DecodeSubscribe(s.Encode()); err == nil {
		t.Fatal("expected error for subscribe with no filters")
	}
}

func TestSubAckOneReasonCodePerFilter(t *testing.T) {
	ack := &SubAck{
		PacketID:    1,
		ReasonCodes: []SubscribeReasonCode{SubAckQoS1, SubAckTopicFilterInvalid},
	}
	raw := ack.Encode()
	// fixed header + remaining length + packet id (2) + empty properties (1) + 2 reason codes
	if raw[len(raw)-1] != byte(SubAckTopicFilterInvalid) {
		t.Fatalf("expected last reason code to be the invalid-filter code, got %x", raw[len(raw)-1])
	}
}

func TestUnsubscribeRoundTrip(t *testing.T) {
	u := &Unsubscribe{
		PacketID: 9,
		Filters:  []string{"sensors/+/temp", "alerts/#"},
	}

	got, err := DecodeUnsubscribe(u.Encode())
	if err != nil {
		t.Fatalf("DecodeUnsubscribe: %v", err)
	}
	if len(got.Filters) != 2 || got.Filters[0] != "sensors/+/temp" {
		t.Fatalf("round trip mismatch: %+v", got.Filters)
	}
}

func TestUnsubAckOneReasonCodePerFilter(t *testing.T) {
	ack := &UnsubAck{
		PacketID:    9,
		ReasonCodes: []UnsubscribeReasonCode{UnsubAckSuccess, UnsubAckNoSubscriptionExisted},
	}
	raw := ack.Encode()
	if len(raw) < 2 {
		t.Fatal("encoded unsuback too short")
	}
	if raw[len(raw)-1] != byte(UnsubAckNoSubscriptionExisted) {
		t.Fatalf("expected last reason code to reflect missing subscription, got %x", raw[len(raw)-1])
	}
}
