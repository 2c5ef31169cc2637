package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	actionSchema := compile("action.schema.json")
	ackSchema := compile("ack.schema.json")
	resolutionSchema := compile("resolution.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "player_name":"sender_one",
	  "role":"ESP",
	  "room_id":"room_1"
	}`), &hello)
	validate(helloSchema, hello)

	var action any
	_ = json.Unmarshal([]byte(`{
	  "type":"ACTION",
	  "protocol_version":"1.0",
	  "round":2,
	  "player_id":"P1",
	  "actions":[
	    {"id":"a1","type":"ACQUIRE_CLIENT","catalog_id":"retail_promotions"},
	    {"id":"a2","type":"CONFIGURE_ONBOARDING","client_id":"cl_1","warmup":true,"hygiene":true},
	    {"id":"a3","type":"CAST_VOTE","esp_id":"esp_2"},
	    {"id":"a4","type":"LOCK_IN"}
	  ]
	}`), &action)
	validate(actionSchema, action)

	var ack any
	_ = json.Unmarshal([]byte(`{
	  "type":"ACK",
	  "protocol_version":"1.0",
	  "ack_for":"a1",
	  "accepted":false,
	  "code":"E_NO_CREDITS",
	  "message":"not enough credits",
	  "round":2
	}`), &ack)
	validate(ackSchema, ack)

	var resolution any
	_ = json.Unmarshal([]byte(`{
	  "type":"RESOLUTION",
	  "protocol_version":"1.0",
	  "room_id":"room_1",
	  "round":2,
	  "digest":"`+hex64+`",
	  "resolution":{
	    "round":2,
	    "teams":{
	      "esp_1":{
	        "esp_id":"esp_1",
	        "total_volume":46000,
	        "volume_by_destination":{"gmail":23000,"outlook":13800,"yahoo":9200},
	        "delivery":{
	          "gmail":{"zone":"good","base_rate":0.85,"filtering_penalty":0.02,"final_rate":0.83}
	        },
	        "aggregate_delivery_rate":0.83,
	        "base_revenue":920,
	        "actual_revenue":764,
	        "reputation_delta":{"gmail":1},
	        "reputation_after":{"gmail":71}
	      }
	    }
	  }
	}`), &resolution)
	validate(resolutionSchema, resolution)
}

const hex64 = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
