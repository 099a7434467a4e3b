package archive

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelprep/modelprep/pkg/errors"
)

type member struct {
	name     string
	body     string
	typeflag byte
	linkname string
}

func writeArchive(t *testing.T, members []member) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.tar.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for _, m := range members {
		hdr := &tar.Header{
			Name:     m.name,
			Mode:     0o644,
			Size:     int64(len(m.body)),
			Typeflag: tar.TypeReg,
		}
		if m.typeflag != 0 {
			hdr.Typeflag = m.typeflag
			hdr.Size = 0
			hdr.Mode = 0o755
			hdr.Linkname = m.linkname
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header %s: %v", m.name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(m.body)); err != nil {
				t.Fatalf("write body %s: %v", m.name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return path
}

func TestExtract(t *testing.T) {
	archive := writeArchive(t, []member{
		{name: "model/", typeflag: tar.TypeDir},
		{name: "model/frozen_inference_graph.json", body: `{"nodes": []}`},
		{name: "model/checkpoint", body: "ckpt"},
	})
	dest := t.TempDir()

	if err := Extract(archive, dest, Options{}); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "model", "frozen_inference_graph.json"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(data) != `{"nodes": []}` {
		t.Errorf("content = %q", data)
	}
	if _, err := os.Stat(filepath.Join(dest, "model", "checkpoint")); err != nil {
		t.Errorf("checkpoint missing: %v", err)
	}
}

func TestExtractSymlink(t *testing.T) {
	archive := writeArchive(t, []member{
		{name: "data.txt", body: "payload"},
		{name: "link.txt", typeflag: tar.TypeSymlink, linkname: "data.txt"},
	})
	dest := t.TempDir()

	if err := Extract(archive, dest, Options{}); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	target, err := os.Readlink(filepath.Join(dest, "link.txt"))
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if target != "data.txt" {
		t.Errorf("link target = %s", target)
	}
}

func TestExtractPathTraversal(t *testing.T) {
	tests := []struct {
		name    string
		members []member
	}{
		{
			name: "DotDotMember",
			members: []member{
				{name: "ok.txt", body: "fine"},
				{name: "../evil.txt", body: "escape"},
			},
		},
		{
			name: "DeepDotDot",
			members: []member{
				{name: "nested/../../evil.txt", body: "escape"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archive := writeArchive(t, tt.members)
			dest := t.TempDir()

			err := Extract(archive, dest, Options{})
			if err == nil {
				t.Fatal("expected path-traversal error")
			}
			if !errors.Is(err, errors.ErrCodePathTraversal) {
				t.Errorf("error code = %s, want PATH_TRAVERSAL", errors.GetCode(err))
			}

			// Fail fast: nothing at all may be written, including the
			// members that were individually in bounds.
			entries, readErr := os.ReadDir(dest)
			if readErr != nil {
				t.Fatalf("read dest: %v", readErr)
			}
			if len(entries) != 0 {
				t.Errorf("dest not empty after aborted extraction: %v", entries)
			}
		})
	}
}

func TestExtractAbsoluteMemberName(t *testing.T) {
	archive := writeArchive(t, []member{
		{name: "/abs/evil.txt", body: "payload"},
	})
	dest := t.TempDir()

	// Absolute names are re-rooted under dest by the join, so the member
	// lands inside the extraction directory rather than at /abs/evil.txt.
	if err := Extract(archive, dest, Options{}); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dest, "abs", "evil.txt"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("content = %q", data)
	}
}

func TestIsWithinDirectory(t *testing.T) {
	tests := []struct {
		name   string
		dir    string
		target string
		want   bool
	}{
		{"Inside", "/a/b", "/a/b/c.txt", true},
		{"Self", "/a/b", "/a/b", true},
		{"Outside", "/a/b", "/a/evil.txt", false},
		{"Parent", "/a/b", "/a", false},
		// Known weakness of the prefix comparison, preserved for parity
		// with the original routine: a sibling sharing the directory
		// string as a prefix passes the check.
		{"SiblingPrefix", "/a/b", "/a/bc/evil.txt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := isWithinDirectory(tt.dir, tt.target)
			if err != nil {
				t.Fatalf("isWithinDirectory: %v", err)
			}
			if got != tt.want {
				t.Errorf("isWithinDirectory(%s, %s) = %v, want %v", tt.dir, tt.target, got, tt.want)
			}
		})
	}
}
