package files

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestRejectSymlinkPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink not permitted on Windows")
	}
	tmp := t.TempDir()
	mustMkdir := func(p string) {
		if err := os.MkdirAll(p, 0o700); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	mustLink := func(target, link string) {
		if err := os.Symlink(target, link); err != nil {
			t.Fatalf("symlink: %v", err)
		}
	}

	mustMkdir(filepath.Join(tmp, "real", "nested"))
	if err := os.WriteFile(filepath.Join(tmp, "real", "target.mp4"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	mustLink(filepath.Join(tmp, "real", "target.mp4"), filepath.Join(tmp, "real", "link.mp4"))
	mustLink(filepath.Join(tmp, "real"), filepath.Join(tmp, "linkdir"))

	cases := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "plain new file", path: filepath.Join(tmp, "real", "new.mp4")},
		{name: "missing directories", path: filepath.Join(tmp, "a", "b", "c.mp4")},
		{name: "existing regular file", path: filepath.Join(tmp, "real", "target.mp4")},
		{name: "file symlink", path: filepath.Join(tmp, "real", "link.mp4"), wantErr: true},
		{name: "parent symlink", path: filepath.Join(tmp, "linkdir", "out.mp4"), wantErr: true},
		{name: "ancestor symlink", path: filepath.Join(tmp, "linkdir", "nested", "out.mp4"), wantErr: true},
		{name: "empty", path: "  ", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := RejectSymlinkPath(tc.path)
			if (err != nil) != tc.wantErr {
				t.Fatalf("RejectSymlinkPath(%q) = %v, wantErr %v", tc.path, err, tc.wantErr)
			}
		})
	}
}

func TestLineage(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	got := lineage("/a/b/c.mp4")
	want := []string{"/a", "/a/b", "/a/b/c.mp4"}
	if len(got) != len(want) {
		t.Fatalf("lineage = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("lineage = %v, want %v", got, want)
		}
	}
}

func TestAtomicWrite_RefusesSymlinkTarget(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink not permitted on Windows")
	}
	tmp := t.TempDir()
	target := filepath.Join(tmp, "target.mp4")
	if err := os.WriteFile(target, []byte("original"), 0o600); err != nil {
		t.Fatalf("write target: %v", err)
	}
	link := filepath.Join(tmp, "out.mp4")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	if err := AtomicWrite(link, []byte("new"), 0o600); err == nil {
		t.Fatalf("expected AtomicWrite to reject symlink")
	}
	if data, _ := os.ReadFile(target); string(data) != "original" {
		t.Fatalf("target modified via symlink: %s", data)
	}
}
