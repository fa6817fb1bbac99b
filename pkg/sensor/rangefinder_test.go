package sensor

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		want  float64
		err   error
	}{
		{"valid", []byte{0xFF, 0x07, 0xA1, 0xA7}, 195.3, nil},
		{"zero", []byte{0xFF, 0x00, 0x00, 0xFF}, 0, nil},
		{"bad header", []byte{0xFE, 0x07, 0xA1, 0xA6}, 0, ErrHeader},
		{"bad checksum", []byte{0xFF, 0x07, 0xA1, 0x00}, 0, ErrChecksum},
		{"short", []byte{0xFF, 0x07}, 0, ErrShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFrame(tt.frame)
			if !errors.Is(err, tt.err) {
				t.Fatalf("ParseFrame err = %v, want %v", err, tt.err)
			}
			if got != tt.want {
				t.Errorf("ParseFrame = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEncodeFrame_RoundTrip(t *testing.T) {
	for _, mm := range []uint16{0, 1, 255, 256, 1945, 4999, 65535} {
		got, err := ParseFrame(EncodeFrame(mm))
		if err != nil {
			t.Fatalf("ParseFrame(EncodeFrame(%d)): %v", mm, err)
		}
		if want := float64(mm) / 10; got != want {
			t.Errorf("round trip %d mm = %v cm, want %v", mm, got, want)
		}
	}
}

// chunkPort returns its data a few bytes at a time, then times out.
type chunkPort struct {
	data  []byte
	chunk int
}

func (p *chunkPort) Read(b []byte) (int, error) {
	if len(p.data) == 0 {
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	n := p.chunk
	if n > len(p.data) {
		n = len(p.data)
	}
	n = copy(b, p.data[:n])
	p.data = p.data[n:]
	return n, nil
}

func (p *chunkPort) Close() error { return nil }

func backlog(mm ...uint16) []byte {
	var b []byte
	for _, v := range mm {
		b = append(b, EncodeFrame(v)...)
	}
	return b
}

func TestRangefinder_RawMeasureDistance(t *testing.T) {
	var noise bytes.Buffer
	noise.Write([]byte{0x12, 0xFF, 0x01})       // garbage then a torn frame
	noise.Write([]byte{0xFF, 0x00, 0x00, 0x00}) // bad checksum
	noise.Write(EncodeFrame(305))               // 30.5 cm
	noise.Write(EncodeFrame(1200))              // newer reading

	tests := []struct {
		name string
		data []byte
		want []float64
	}{
		{"clean", EncodeFrame(1000), []float64{100, NoEcho}},
		{"resync", noise.Bytes(), []float64{120, NoEcho}},
		{"newest wins", backlog(1000, 600, 50), []float64{5, NoEcho}},
		{"torn tail", append(EncodeFrame(400), 0xFF, 0x01), []float64{40, NoEcho}},
		{"garbage only", []byte{0x01, 0x02, 0xFF, 0x03}, []float64{EchoStuck}},
		{"silent", nil, []float64{NoEcho}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(&chunkPort{data: tt.data, chunk: 3}, 20*time.Millisecond)
			for i, want := range tt.want {
				if got := r.RawMeasureDistance(); got != want {
					t.Errorf("reading %d = %v, want %v", i, got, want)
				}
			}
		})
	}
}
