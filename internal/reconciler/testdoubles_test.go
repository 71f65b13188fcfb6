package reconciler

import (
	"context"
	"sort"
	"strings"

	"github.com/starford/taskvault/internal/frontmatter"
	"github.com/starford/taskvault/internal/models"
	"github.com/starford/taskvault/internal/pathpolicy"
)

// fakeStore is an in-memory vault for reconciler tests. It is not meant to
// be realistic about file formats; it round-trips frontmatter through the
// same frontmatter package the reconciler uses, which is what matters.
type fakeStore struct {
	files map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: map[string][]byte{}}
}

func (s *fakeStore) ListAllPaths() ([]string, error) {
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *fakeStore) ListActiveTaskPaths() ([]string, error) {
	all, _ := s.ListAllPaths()
	var out []string
	for _, p := range all {
		base := p
		if idx := strings.LastIndex(p, "/"); idx >= 0 {
			base = p[idx+1:]
		}
		if strings.HasPrefix(base, "_") {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeStore) Frontmatter(path string) (models.Frontmatter, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, nil
	}
	fm, _, err := frontmatter.Split(data)
	return fm, err
}

func (s *fakeStore) ReadFile(path string) ([]byte, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, errNotFound(path)
	}
	return data, nil
}

func (s *fakeStore) WriteFile(path string, data []byte) error {
	s.files[path] = data
	return nil
}

func (s *fakeStore) CreateFile(path string, data []byte) error {
	s.files[path] = data
	return nil
}

func (s *fakeStore) ProcessFrontmatter(path string, fn func(models.Frontmatter) (models.Frontmatter, error)) error {
	data, ok := s.files[path]
	if !ok {
		return errNotFound(path)
	}
	fm, body, err := frontmatter.Split(data)
	if err != nil {
		return err
	}
	if fm == nil {
		fm = models.Frontmatter{}
	}
	fm, err = fn(fm)
	if err != nil {
		return err
	}
	frontmatter.StripLegacyKeys(fm)
	doc := frontmatter.NewDoc()
	keys := make([]string, 0, len(fm))
	for k := range fm {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		doc.Set(k, fm[k])
	}
	out, err := doc.Render(body)
	if err != nil {
		return err
	}
	s.files[path] = out
	return nil
}

func (s *fakeStore) Exists(path string) bool {
	_, ok := s.files[path]
	return ok
}

func (s *fakeStore) Move(oldPath, newPath string) error {
	data, ok := s.files[oldPath]
	if !ok {
		return errNotFound(oldPath)
	}
	s.files[newPath] = data
	delete(s.files, oldPath)
	return nil
}

func (s *fakeStore) MoveFolder(oldDir, newDir string) error {
	prefix := oldDir + "/"
	for p, data := range s.files {
		if strings.HasPrefix(p, prefix) {
			newPath := newDir + "/" + strings.TrimPrefix(p, prefix)
			s.files[newPath] = data
			delete(s.files, p)
		}
	}
	return nil
}

func (s *fakeStore) EnsureFolder(dir string) error { return nil }

func (s *fakeStore) MoveToTrash(path string) error {
	delete(s.files, path)
	return nil
}

type notFoundError string

func (e notFoundError) Error() string { return "not found: " + string(e) }

func errNotFound(path string) error { return notFoundError(path) }

// fakeRemote is a scripted remote.Client for reconciler tests.
type fakeRemote struct {
	snapshot     models.RemoteSnapshot
	deletedIDs   map[string]struct{}
	createdIDs   []string
	nextCreateID string
	createErr    error
	updates      []models.UpdateTaskPatch
	updateErr    error
}

func (f *fakeRemote) FetchSnapshot(ctx context.Context) (models.RemoteSnapshot, error) {
	return f.snapshot, nil
}

func (f *fakeRemote) FetchRecentlyDeletedIDs(ctx context.Context, limit int) (map[string]struct{}, error) {
	if f.deletedIDs == nil {
		return map[string]struct{}{}, nil
	}
	return f.deletedIDs, nil
}

func (f *fakeRemote) CreateTask(ctx context.Context, payload models.CreateTaskPayload) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.createdIDs = append(f.createdIDs, f.nextCreateID)
	return f.nextCreateID, nil
}

func (f *fakeRemote) UpdateTask(ctx context.Context, patch models.UpdateTaskPatch) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, patch)
	return nil
}

func defaultTestConfig() Config {
	return Config{
		Names:     frontmatter.Default(),
		TaskFiles: pathpolicy.TaskFileConfig{BaseFolder: "Tasks"},
	}
}
