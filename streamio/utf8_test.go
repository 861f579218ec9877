package streamio

import (
	"bytes"
	"testing"
)

func TestUTF8Decoder_SplitMultiByte(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   []string
	}{
		{
			name:   "ascii passes through",
			chunks: []string{"hello", " world"},
			want:   []string{"hello", " world"},
		},
		{
			name:   "two byte sequence split",
			chunks: []string{"caf\xc3", "\xa9"},
			want:   []string{"caf", "é"},
		},
		{
			name:   "three byte sequence split after one byte",
			chunks: []string{"x\xe2", "\x82\xacy"},
			want:   []string{"x", "€y"},
		},
		{
			name:   "four byte emoji split across three chunks",
			chunks: []string{"\xf0\x9f", "\x98", "\x80!"},
			want:   []string{"", "", "😀!"},
		},
		{
			name:   "boundary aligned chunks untouched",
			chunks: []string{"日本", "語"},
			want:   []string{"日本", "語"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dec UTF8Decoder
			for i, chunk := range tt.chunks {
				got := dec.Feed([]byte(chunk))
				if string(got) != tt.want[i] {
					t.Errorf("Feed(chunk %d) = %q, want %q", i, got, tt.want[i])
				}
			}
			if dec.Pending() {
				t.Errorf("decoder still pending after complete input")
			}
		})
	}
}

func TestUTF8Decoder_ConcatenationInvariant(t *testing.T) {
	// Splitting the same input at every possible position must reassemble
	// to identical output.
	input := []byte("héllo 世界 😀 done")
	for cut := 0; cut <= len(input); cut++ {
		var dec UTF8Decoder
		var out bytes.Buffer
		out.Write(dec.Feed(input[:cut]))
		out.Write(dec.Feed(input[cut:]))
		out.Write(dec.Flush())
		if !bytes.Equal(out.Bytes(), input) {
			t.Fatalf("split at %d: got %q, want %q", cut, out.Bytes(), input)
		}
	}
}

func TestUTF8Decoder_Flush(t *testing.T) {
	var dec UTF8Decoder
	got := dec.Feed([]byte("ok\xe2\x82"))
	if string(got) != "ok" {
		t.Errorf("Feed = %q, want %q", got, "ok")
	}
	if !dec.Pending() {
		t.Errorf("Pending = false, want true")
	}
	rest := dec.Flush()
	if !bytes.Equal(rest, []byte("\xe2\x82")) {
		t.Errorf("Flush = %q, want %q", rest, "\xe2\x82")
	}
	if dec.Pending() {
		t.Errorf("Pending = true after Flush")
	}
}

func TestUTF8Decoder_InvalidBytesPassThrough(t *testing.T) {
	var dec UTF8Decoder
	got := dec.Feed([]byte{0xff, 0xfe, 'a'})
	if !bytes.Equal(got, []byte{0xff, 0xfe, 'a'}) {
		t.Errorf("Feed = %v, want invalid bytes passed through", got)
	}
}
