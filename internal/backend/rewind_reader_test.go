package backend

import (
	"io"
	"testing"

	"github.com/minio/sha256-simd"
	"github.com/skyline93/dope/internal/dope"
)

func TestByteReader(t *testing.T) {
	data := []byte("key,value\na,1\n")
	rd := NewByteReader(data, sha256.New())

	if rd.Length() != int64(len(data)) {
		t.Fatalf("Length() = %d, want %d", rd.Length(), len(data))
	}
	if !rd.ID().Equal(dope.Hash(data)) {
		t.Fatalf("ID() = %v, want %v", rd.ID(), dope.Hash(data))
	}

	for i := 0; i < 2; i++ {
		buf, err := io.ReadAll(rd)
		if err != nil {
			t.Fatal(err)
		}
		if string(buf) != string(data) {
			t.Fatalf("read %q, want %q", buf, data)
		}
		if err := rd.Rewind(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestByteReaderWithoutHasher(t *testing.T) {
	rd := NewByteReader([]byte("x"), nil)
	if id := rd.ID(); !id.IsNull() {
		t.Fatalf("ID() = %v, want null ID", id)
	}
}

func TestFileTypeString(t *testing.T) {
	var tests = []struct {
		t    FileType
		want string
	}{
		{TableFile, "table"},
		{KeyFile, "key"},
		{LockFile, "lock"},
		{FileType(0), "invalid"},
	}

	for _, test := range tests {
		if got := test.t.String(); got != test.want {
			t.Errorf("FileType(%d).String() = %q, want %q", test.t, got, test.want)
		}
	}

	if (Handle{}).Valid() || !(Handle{Type: KeyFile}).Valid() {
		t.Errorf("Handle.Valid is wrong")
	}
}
