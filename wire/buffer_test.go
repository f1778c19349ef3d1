package wire

import "testing"

func TestBuffer_PrimitiveRoundTrip(t *testing.T) {
	t.Run("uint64", func(t *testing.T) {
		b := NewBuffer(0)
		if err := b.WriteUint64(0x0102030405060708); err != nil {
			t.Fatalf("WriteUint64: %v", err)
		}
		if b.Position() != 8 {
			t.Fatalf("position after write = %d, want 8", b.Position())
		}
		if err := b.Seek(0); err != nil {
			t.Fatalf("Seek: %v", err)
		}
		got, err := b.ReadUint64()
		if err != nil {
			t.Fatalf("ReadUint64: %v", err)
		}
		if got != 0x0102030405060708 {
			t.Fatalf("got %#x, want %#x", got, 0x0102030405060708)
		}
		if b.Position() != 8 {
			t.Fatalf("position after read = %d, want 8", b.Position())
		}
	})

	t.Run("float64", func(t *testing.T) {
		b := NewBuffer(0)
		_ = b.WriteFloat64(3.14159)
		_ = b.Seek(0)
		got, err := b.ReadFloat64()
		if err != nil {
			t.Fatalf("ReadFloat64: %v", err)
		}
		if got != 3.14159 {
			t.Fatalf("got %v, want 3.14159", got)
		}
	})

	t.Run("string", func(t *testing.T) {
		b := NewBuffer(0)
		_ = b.WriteString("hello, swarm")
		_ = b.Seek(0)
		got, err := b.ReadString()
		if err != nil {
			t.Fatalf("ReadString: %v", err)
		}
		if got != "hello, swarm" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("bool", func(t *testing.T) {
		b := NewBuffer(0)
		_ = b.WriteBool(true)
		_ = b.WriteBool(false)
		_ = b.Seek(0)
		v1, _ := b.ReadBool()
		v2, _ := b.ReadBool()
		if !v1 || v2 {
			t.Fatalf("got (%v, %v), want (true, false)", v1, v2)
		}
	})
}

func TestBuffer_ReserveForWrite(t *testing.T) {
	b := NewBuffer(0)
	_ = b.WriteUint32(1)
	before := b.Position()
	beforeSize := b.Size()

	b.ReserveForWrite(100)

	if b.Reserved() < before+100 {
		t.Fatalf("Reserved() = %d, want >= %d", b.Reserved(), before+100)
	}
	if b.Position() != before {
		t.Fatalf("position changed: %d -> %d", before, b.Position())
	}
	if b.Size() != beforeSize {
		t.Fatalf("size changed: %d -> %d", beforeSize, b.Size())
	}
}

func TestBuffer_Seek(t *testing.T) {
	b := NewBuffer(0)
	_ = b.WriteUint32(1) // size = 4

	if err := b.Seek(4); err != nil {
		t.Fatalf("Seek(size): %v", err)
	}
	if err := b.Seek(5); err == nil {
		t.Fatal("Seek(size+1) should fail")
	}
	if err := b.Seek(0); err != nil {
		t.Fatalf("Seek(0): %v", err)
	}
}

func TestBuffer_SeekResize(t *testing.T) {
	b := NewBuffer(100)

	if err := b.SeekResize(50); err != nil {
		t.Fatalf("SeekResize(50): %v", err)
	}
	if b.Position() != 50 || b.Size() != 50 {
		t.Fatalf("position=%d size=%d, want 50/50", b.Position(), b.Size())
	}

	if err := b.SeekResize(b.Reserved() + 1); err == nil {
		t.Fatal("SeekResize(reserved+1) should fail")
	}
}

func TestBuffer_CheckForRead(t *testing.T) {
	b := NewBuffer(0)
	_ = b.WriteUint32(1) // size = 4
	_ = b.Seek(0)

	if err := b.CheckForRead(4); err != nil {
		t.Fatalf("CheckForRead(4): %v", err)
	}
	if err := b.CheckForRead(5); err == nil {
		t.Fatal("CheckForRead(5) should fail when only 4 bytes are available")
	}
}
