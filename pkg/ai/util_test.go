package ai

import "testing"

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestUnmarshalFlexible(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  payload
	}{
		{
			name:  "standard json",
			input: `{"name": "act", "count": 2}`,
			want:  payload{Name: "act", Count: 2},
		},
		{
			name:  "fenced json",
			input: "```json\n{\"name\": \"act\", \"count\": 2}\n```",
			want:  payload{Name: "act", Count: 2},
		},
		{
			name:  "double encoded",
			input: `"{\"name\": \"act\", \"count\": 2}"`,
			want:  payload{Name: "act", Count: 2},
		},
		{
			name:  "malformed but repairable",
			input: `{name: "act", count: 2,}`,
			want:  payload{Name: "act", Count: 2},
		},
		{
			name:  "surrounding whitespace",
			input: "\n  {\"name\": \"act\", \"count\": 2}  \n",
			want:  payload{Name: "act", Count: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got payload
			if err := UnmarshalFlexible(tt.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestUnmarshalFlexibleRejectsGarbage(t *testing.T) {
	var got payload
	if err := UnmarshalFlexible("", &got); err == nil {
		t.Error("UnmarshalFlexible(\"\") = nil error, want failure")
	}
}
