package muduo

import (
	"testing"
)

func TestBufferAppendRetrieve(t *testing.T) {
	b := NewBuffer()
	if b.ReadableBytes() != 0 {
		t.Fatalf("new buffer readable = %d, want 0", b.ReadableBytes())
	}
	if b.PrependableBytes() != cheapPrepend {
		t.Fatalf("new buffer prependable = %d, want %d", b.PrependableBytes(), cheapPrepend)
	}

	b.AppendString("hello")
	if b.ReadableBytes() != 5 {
		t.Fatalf("readable after append = %d, want 5", b.ReadableBytes())
	}
	if got := string(b.Peek()); got != "hello" {
		t.Fatalf("peek = %q, want %q", got, "hello")
	}

	s := b.RetrieveAsString(3)
	if s != "hel" {
		t.Fatalf("RetrieveAsString(3) = %q, want %q", s, "hel")
	}
	if b.ReadableBytes() != 2 {
		t.Fatalf("readable after partial retrieve = %d, want 2", b.ReadableBytes())
	}

	rest := b.RetrieveAllAsString()
	if rest != "lo" {
		t.Fatalf("RetrieveAllAsString = %q, want %q", rest, "lo")
	}
	if b.ReadableBytes() != 0 {
		t.Fatalf("readable after RetrieveAll = %d, want 0", b.ReadableBytes())
	}
}

func TestBufferGrowsWhenFull(t *testing.T) {
	b := NewBufferSize(4)
	payload := make([]byte, 1000)
	for i := range payload {
		payload[i] = byte(i)
	}

	b.Append(payload)
	if b.ReadableBytes() != len(payload) {
		t.Fatalf("readable = %d, want %d", b.ReadableBytes(), len(payload))
	}
	if got := b.Peek(); string(got) != string(payload) {
		t.Fatalf("peek mismatch after growth")
	}
}

func TestBufferMakeSpaceReusesFrontWhenPossible(t *testing.T) {
	b := NewBufferSize(1024)
	b.AppendString("0123456789")
	b.Retrieve(8)

	before := len(b.buf)
	b.Append(make([]byte, 1020))

	if len(b.buf) != before {
		t.Fatalf("makeSpace reallocated when it should have shifted in place: len(buf) = %d, want %d", len(b.buf), before)
	}
	if b.readerIndex != cheapPrepend {
		t.Fatalf("readerIndex after shift = %d, want %d", b.readerIndex, cheapPrepend)
	}
}

func TestBufferPrepend(t *testing.T) {
	b := NewBuffer()
	b.AppendString("world")
	b.PrependUint32(5)

	if b.ReadableBytes() != 9 {
		t.Fatalf("readable after prepend = %d, want 9", b.ReadableBytes())
	}
	if v := b.ReadUint32(); v != 5 {
		t.Fatalf("ReadUint32 = %d, want 5", v)
	}
	if s := b.RetrieveAllAsString(); s != "world" {
		t.Fatalf("remaining payload = %q, want %q", s, "world")
	}
}

func TestBufferUint8RoundTrip(t *testing.T) {
	b := NewBuffer()
	b.AppendUint8(0xab)
	b.AppendString("y")

	if b.ReadableBytes() != 2 {
		t.Fatalf("readable after append = %d, want 2", b.ReadableBytes())
	}
	if got := b.PeekUint8(); got != 0xab {
		t.Fatalf("PeekUint8 = %#x, want 0xab", got)
	}
	if got := b.ReadUint8(); got != 0xab {
		t.Fatalf("ReadUint8 = %#x, want 0xab", got)
	}
	if s := b.RetrieveAllAsString(); s != "y" {
		t.Fatalf("remaining payload = %q, want %q", s, "y")
	}

	b.AppendString("z")
	b.PrependUint8(0xcd)
	if got := b.ReadUint8(); got != 0xcd {
		t.Fatalf("ReadUint8 after prepend = %#x, want 0xcd", got)
	}
	if s := b.RetrieveAllAsString(); s != "z" {
		t.Fatalf("remaining payload = %q, want %q", s, "z")
	}
}

func TestBufferFindCRLF(t *testing.T) {
	b := NewBuffer()
	b.AppendString("GET / HTTP/1.1\r\nHost: x\r\n")

	idx := b.FindCRLF()
	if idx != 14 {
		t.Fatalf("FindCRLF = %d, want 14", idx)
	}

	line := b.RetrieveAsString(idx)
	b.Retrieve(2) // consume the CRLF itself
	if line != "GET / HTTP/1.1" {
		t.Fatalf("line = %q", line)
	}
}

func TestBufferReadFD(t *testing.T) {
	r, w, err := pipeFDs()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer closeFD(r)
	defer closeFD(w)

	payload := []byte("reactor core")
	if err := writeAllFD(w, payload); err != nil {
		t.Fatalf("write: %v", err)
	}

	b := NewBuffer()
	n, err := b.ReadFD(r)
	if err != nil {
		t.Fatalf("ReadFD: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("ReadFD n = %d, want %d", n, len(payload))
	}
	if got := b.RetrieveAllAsString(); got != string(payload) {
		t.Fatalf("ReadFD content = %q, want %q", got, string(payload))
	}
}
