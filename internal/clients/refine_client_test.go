package clients

import "testing"

func TestParseRefineJSON(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want refineResult
	}{
		{
			name: "plain json",
			raw:  `{"other_name": "小明", "conversation": "我：你好\n小明：你好呀"}`,
			want: refineResult{OtherName: "小明", Conversation: "我：你好\n小明：你好呀"},
		},
		{
			name: "json fence",
			raw:  "```json\n{\"other_name\": \"小明\", \"conversation\": \"我：你好\"}\n```",
			want: refineResult{OtherName: "小明", Conversation: "我：你好"},
		},
		{
			name: "bare fence",
			raw:  "```\n{\"other_name\": \"对方\", \"conversation\": \"\"}\n```",
			want: refineResult{OtherName: "对方"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseRefineJSON(tc.raw)
			if err != nil {
				t.Fatalf("parseRefineJSON() error: %v", err)
			}
			if got.OtherName != tc.want.OtherName || got.Conversation != tc.want.Conversation {
				t.Fatalf("parseRefineJSON() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestParseRefineJSONMalformed(t *testing.T) {
	for _, raw := range []string{"", "not json", "```\ntruncated"} {
		if _, err := parseRefineJSON(raw); err == nil {
			t.Errorf("parseRefineJSON(%q) should fail", raw)
		}
	}
}
