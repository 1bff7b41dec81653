package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Failed to open catalog: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testRecord(path string) *Record {
	rec := &Record{Path: path, Format: "tar.zst", Encrypted: true, Size: 1234}
	rec.AddEntry("a.txt", []byte("hello"))
	rec.AddEntry("b/c.bin", []byte{1, 2, 3})
	return rec
}

func TestPutAndGet(t *testing.T) {
	c := openTestCatalog(t)

	rec := testRecord("/tmp/out.tar.zst.enc")
	if err := c.Put(rec); err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("Put did not assign an ID")
	}
	if rec.Created.IsZero() {
		t.Fatal("Put did not set Created")
	}

	got, err := c.Get(rec.ID)
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}
	if got.Path != rec.Path || got.Format != rec.Format || !got.Encrypted || got.Size != 1234 {
		t.Errorf("record mismatch: %+v", got)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(got.Entries))
	}
	if !got.Verify("a.txt", []byte("hello")) {
		t.Error("manifest does not verify original content")
	}
	if got.Verify("a.txt", []byte("hellO")) {
		t.Error("manifest verified modified content")
	}
	if !got.Created.Equal(rec.Created) {
		t.Errorf("Created = %v, want %v", got.Created, rec.Created)
	}
}

func TestGetMissing(t *testing.T) {
	c := openTestCatalog(t)
	if _, err := c.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestPutReplacesSamePath(t *testing.T) {
	c := openTestCatalog(t)

	first := testRecord("/data/a.zip")
	if err := c.Put(first); err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}
	second := testRecord("/data/a.zip")
	if err := c.Put(second); err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}

	records, err := c.List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(records) != 1 || records[0].ID != second.ID {
		t.Errorf("expected only the second record, got %+v", records)
	}
}

func TestFindByPathAndResolve(t *testing.T) {
	c := openTestCatalog(t)
	rec := testRecord("/data/b.lat")
	if err := c.Put(rec); err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}

	found, err := c.FindByPath("/data/b.lat")
	if err != nil || found == nil || found.ID != rec.ID {
		t.Fatalf("FindByPath = %v, %v", found, err)
	}

	missing, err := c.FindByPath("/data/none.zip")
	if err != nil || missing != nil {
		t.Errorf("FindByPath(missing) = %v, %v", missing, err)
	}

	byPrefix, err := c.Resolve(rec.ID[:8])
	if err != nil || byPrefix.ID != rec.ID {
		t.Errorf("Resolve(prefix) = %v, %v", byPrefix, err)
	}
	if _, err := c.Resolve("zzzzzzzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve(unknown) error = %v", err)
	}
}

func TestListOrder(t *testing.T) {
	c := openTestCatalog(t)
	base := time.Now()
	for i, p := range []string{"/c", "/a", "/b"} {
		rec := testRecord(p)
		rec.Created = base.Add(time.Duration(i) * time.Minute)
		if err := c.Put(rec); err != nil {
			t.Fatalf("Failed to put record: %v", err)
		}
	}

	records, err := c.List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, want := range []string{"/c", "/a", "/b"} {
		if records[i].Path != want {
			t.Errorf("records[%d] = %s, want %s", i, records[i].Path, want)
		}
	}
}

func TestDelete(t *testing.T) {
	c := openTestCatalog(t)
	rec := testRecord("/data/x.paqg")
	if err := c.Put(rec); err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}

	if err := c.Delete(rec.ID); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := c.Get(rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("record still present: %v", err)
	}
	if found, _ := c.FindByPath(rec.Path); found != nil {
		t.Error("path index still present")
	}
	if err := c.Delete(rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v", err)
	}
}

func TestModifiedTracksChanges(t *testing.T) {
	c := openTestCatalog(t)
	opened, err := c.Modified()
	if err != nil {
		t.Fatalf("Failed to read modified time: %v", err)
	}
	if opened.IsZero() || time.Since(opened) > time.Minute {
		t.Fatalf("modified time on open = %v", opened)
	}

	rec := testRecord("/data/y.tar.zst")
	if err := c.Put(rec); err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}
	afterPut, err := c.Modified()
	if err != nil {
		t.Fatalf("Failed to read modified time: %v", err)
	}
	if afterPut.Before(opened) {
		t.Errorf("modified went backwards after Put: %v < %v", afterPut, opened)
	}

	if err := c.Delete(rec.ID); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	afterDelete, err := c.Modified()
	if err != nil {
		t.Fatalf("Failed to read modified time: %v", err)
	}
	if afterDelete.Before(afterPut) {
		t.Errorf("modified went backwards after Delete: %v < %v", afterDelete, afterPut)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open catalog: %v", err)
	}
	rec := testRecord("/keep")
	if err := c.Put(rec); err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}
	c.Close()

	c, err = Open(path)
	if err != nil {
		t.Fatalf("Failed to reopen catalog: %v", err)
	}
	defer c.Close()
	if _, err := c.Get(rec.ID); err != nil {
		t.Errorf("record lost after reopen: %v", err)
	}
}

func TestCompact(t *testing.T) {
	c := openTestCatalog(t)

	var ids []string
	for i := 0; i < 50; i++ {
		rec := testRecord(fmt.Sprintf("/bulk/%d.zip", i))
		if err := c.Put(rec); err != nil {
			t.Fatalf("Failed to put record: %v", err)
		}
		ids = append(ids, rec.ID)
	}
	for _, id := range ids[1:] {
		if err := c.Delete(id); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}
	}

	if err := c.Compact(); err != nil {
		t.Fatalf("Failed to compact: %v", err)
	}

	if _, err := c.Get(ids[0]); err != nil {
		t.Errorf("surviving record lost: %v", err)
	}
	if _, err := os.Stat(c.Path() + ".backup"); !os.IsNotExist(err) {
		t.Error("backup file left behind")
	}
	records, err := c.List()
	if err != nil || len(records) != 1 {
		t.Errorf("List after compact = %d records, %v", len(records), err)
	}
}

func TestHashContent(t *testing.T) {
	a := HashContent([]byte("abc"))
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
	if a == HashContent([]byte("abd")) {
		t.Error("different inputs hashed equal")
	}
}
