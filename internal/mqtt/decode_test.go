package mqtt

import "testing"

func TestDecodeDispatchesByPacketType(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
		want PacketType
	}{
		{"connect", (&Connect{ProtocolName: "MQTT", ProtocolVersion: ProtocolVersion5, CleanStart: true}).Encode(), CONNECT},
		{"publish", (&Publish{Topic: "x", Payload: []byte("y")}).Encode(), PUBLISH},
		{"subscribe", (&Subscribe{PacketID: 1, Filters: []SubscribeFilter{{Path: "x", QoS: QoS0}}}).Encode(), SUBSCRIBE},
		{"pingreq", []byte{byte(PINGREQ), 0x00}, PINGREQ},
		{"disconnect", NewDisconnect(DisconnectNormal, "").Encode(), DISCONNECT},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Decode(tc.raw)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if d.Type != tc.want {
				t.Fatalf("Decode type = %x, want %x", d.Type, tc.want)
			}
		})
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	raw := []byte{0xF0, 0x00}
	if _, err := Decode(raw); err == nil {
		t.Fatal("expected error decoding an unrecognized packet type")
	}
}

func TestDecodeRejectsEmptyBuffer(t *testing.T) {
	if _, err := Decode([]byte{0x10}); err == nil {
		t.Fatal("expected error decoding a buffer shorter than a fixed header")
	}
}
