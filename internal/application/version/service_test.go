package version

import (
	"context"
	"testing"

	"github.com/modhub/platform/internal/apierror"
	"github.com/modhub/platform/internal/blob"
	"github.com/modhub/platform/internal/cache"
	"github.com/modhub/platform/internal/domain/project"
	"github.com/modhub/platform/internal/domain/vocab"
	"github.com/modhub/platform/internal/domain/version"
	"github.com/modhub/platform/internal/idcodec"
	"github.com/modhub/platform/internal/permission"
	"github.com/modhub/platform/internal/vocabcache"
)

type fakeVersions struct {
	byID          map[idcodec.VersionID]*version.Version
	versionNumber map[string]bool
	fileHashes    map[string]bool
	updates       int
	deletes       int
}

func newFakeVersions() *fakeVersions {
	return &fakeVersions{
		byID:          make(map[idcodec.VersionID]*version.Version),
		versionNumber: make(map[string]bool),
		fileHashes:    make(map[string]bool),
	}
}

func (f *fakeVersions) Create(ctx context.Context, v *version.Version) error {
	f.byID[v.ID()] = v
	f.versionNumber[v.VersionNumber()] = true
	return nil
}
func (f *fakeVersions) Update(ctx context.Context, v *version.Version) error {
	f.updates++
	f.byID[v.ID()] = v
	return nil
}
func (f *fakeVersions) Delete(ctx context.Context, id idcodec.VersionID) error {
	f.deletes++
	delete(f.byID, id)
	return nil
}
func (f *fakeVersions) FindByID(ctx context.Context, id idcodec.VersionID) (*version.Version, error) {
	return f.byID[id], nil
}
func (f *fakeVersions) FindManyByID(ctx context.Context, ids []idcodec.VersionID) ([]*version.Version, error) {
	return nil, nil
}
func (f *fakeVersions) ListByProject(ctx context.Context, projectID idcodec.ProjectID) ([]*version.Version, error) {
	return nil, nil
}
func (f *fakeVersions) ExistsByVersionNumber(ctx context.Context, projectID idcodec.ProjectID, versionNumber string) (bool, error) {
	return f.versionNumber[versionNumber], nil
}
func (f *fakeVersions) ExistsByFileHash(ctx context.Context, algorithm, hex string) (bool, error) {
	return f.fileHashes[algorithm+":"+hex], nil
}
func (f *fakeVersions) ExistsVersionID(ctx context.Context, id idcodec.VersionID) (bool, error) {
	_, ok := f.byID[id]
	return ok, nil
}

type fakeProjects struct {
	byID map[idcodec.ProjectID]*project.Project
}

func (f *fakeProjects) FindByID(ctx context.Context, id idcodec.ProjectID) (*project.Project, error) {
	return f.byID[id], nil
}
func (f *fakeProjects) ExistsByID(ctx context.Context, id idcodec.ProjectID) (bool, error) {
	_, ok := f.byID[id]
	return ok, nil
}
func (f *fakeProjects) Update(ctx context.Context, p *project.Project) error {
	f.byID[p.ID()] = p
	return nil
}
func (f *fakeProjects) LockForUpdate(ctx context.Context, id idcodec.ProjectID) error { return nil }

type fakeLogger struct{ errors int }

func (l *fakeLogger) Info(msg string, fields ...any)  {}
func (l *fakeLogger) Error(msg string, fields ...any) { l.errors++ }

// fakeTx runs fn inline against the same ctx, matching the no-real-database
// behavior every other fake repository here already assumes.
type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService(t *testing.T) (*Service, *fakeVersions, *fakeProjects) {
	t.Helper()
	versions := newFakeVersions()
	projects := &fakeProjects{byID: make(map[idcodec.ProjectID]*project.Project)}
	vc := vocabcache.New(&fakeVocabStore{})
	if err := vc.Load(context.Background()); err != nil {
		t.Fatalf("vocabcache.Load: %v", err)
	}
	c := cache.New(cache.NewMemoryBackend())
	svc := NewService(versions, projects, vc, &fakeBlobHost{}, c, nil, fakeTx{}, &fakeLogger{})
	return svc, versions, projects
}

type fakeVocabStore struct{}

func (f *fakeVocabStore) ListCategories(ctx context.Context) ([]vocab.Category, error) { return nil, nil }
func (f *fakeVocabStore) ListLoaders(ctx context.Context) ([]vocab.Loader, error)       { return nil, nil }
func (f *fakeVocabStore) ListLoaderFields(ctx context.Context) ([]vocab.LoaderField, error) {
	return []vocab.LoaderField{
		{ID: idcodec.LoaderFieldID(1), Key: "client_and_server", Type: vocab.FieldTypeBoolean},
	}, nil
}
func (f *fakeVocabStore) ListLinkPlatforms(ctx context.Context) ([]vocab.LinkPlatform, error) {
	return nil, nil
}

type fakeBlobHost struct{ deletes []string }

func (b *fakeBlobHost) Upload(ctx context.Context, contentType, path string, data []byte, publicity blob.Publicity) (blob.UploadResult, error) {
	return blob.UploadResult{}, nil
}
func (b *fakeBlobHost) Delete(ctx context.Context, path string) error {
	b.deletes = append(b.deletes, path)
	return nil
}

func TestCreate_RequiresUploadVersionBit(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), idcodec.ProjectID(1), idcodec.UserID(1), CreateInput{
		VersionNumber: "1-0-0",
		Name:          "First",
		Type:          version.TypeRelease,
	}, 0, idcodec.VersionID(1))
	if !apierror.Is(err, apierror.KindInsufficientPerm) {
		t.Fatalf("Create without UPLOAD_VERSION = %v; want insufficient_permission", err)
	}
}

func TestCreate_RejectsDuplicateVersionNumber(t *testing.T) {
	svc, versions, _ := newTestService(t)
	versions.versionNumber["1-0-0"] = true

	_, err := svc.Create(context.Background(), idcodec.ProjectID(1), idcodec.UserID(1), CreateInput{
		VersionNumber: "1-0-0",
		Name:          "First",
		Type:          version.TypeRelease,
	}, permission.ProjectUploadVersion, idcodec.VersionID(1))
	if !apierror.Is(err, apierror.KindConflict) {
		t.Fatalf("Create with duplicate version number = %v; want conflict", err)
	}
}

func TestCreate_RejectsUnknownLoaderField(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), idcodec.ProjectID(1), idcodec.UserID(1), CreateInput{
		VersionNumber: "1-0-0",
		Name:          "First",
		Type:          version.TypeRelease,
		LoaderFields:  map[idcodec.LoaderFieldID]any{idcodec.LoaderFieldID(999): true},
	}, permission.ProjectUploadVersion, idcodec.VersionID(1))
	if !apierror.Is(err, apierror.KindInvalidInput) {
		t.Fatalf("Create with unknown loader field = %v; want invalid_input", err)
	}
}

func TestCreate_RejectsMistypedLoaderFieldValue(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), idcodec.ProjectID(1), idcodec.UserID(1), CreateInput{
		VersionNumber: "1-0-0",
		Name:          "First",
		Type:          version.TypeRelease,
		LoaderFields:  map[idcodec.LoaderFieldID]any{idcodec.LoaderFieldID(1): "not-a-bool"},
	}, permission.ProjectUploadVersion, idcodec.VersionID(1))
	if !apierror.Is(err, apierror.KindInvalidInput) {
		t.Fatalf("Create with mistyped loader field = %v; want invalid_input", err)
	}
}

func TestCreate_SucceedsAndInvalidatesCache(t *testing.T) {
	svc, versions, _ := newTestService(t)
	projectKey := idcodec.ProjectID(1).String()
	if err := svc.cache.Put(context.Background(), cache.NamespaceProjects, projectKey, []byte("stale")); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	v, err := svc.Create(context.Background(), idcodec.ProjectID(1), idcodec.UserID(1), CreateInput{
		VersionNumber: "1-0-0",
		Name:          "First",
		Type:          version.TypeRelease,
		LoaderFields:  map[idcodec.LoaderFieldID]any{idcodec.LoaderFieldID(1): true},
	}, permission.ProjectUploadVersion, idcodec.VersionID(1))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if v.VersionNumber() != "1-0-0" {
		t.Errorf("version number = %q; want %q", v.VersionNumber(), "1-0-0")
	}
	if _, ok := versions.byID[idcodec.VersionID(1)]; !ok {
		t.Error("expected the version to be persisted")
	}
	cached, err := svc.cache.GetCachedKeys(context.Background(), cache.NamespaceProjects, []string{projectKey}, func(ctx context.Context, missing []string) (map[string][]byte, error) {
		return map[string][]byte{}, nil
	})
	if err != nil {
		t.Fatalf("GetCachedKeys: %v", err)
	}
	if _, ok := cached[projectKey]; ok {
		t.Error("expected Create to invalidate the project's cache entry")
	}
}

func TestCreate_RejectsDependencyOnNonexistentVersion(t *testing.T) {
	svc, _, _ := newTestService(t)
	missing := idcodec.VersionID(404)
	_, err := svc.Create(context.Background(), idcodec.ProjectID(1), idcodec.UserID(1), CreateInput{
		VersionNumber: "1-0-0",
		Name:          "First",
		Type:          version.TypeRelease,
		Dependencies:  []version.Dependency{{VersionID: &missing}},
	}, permission.ProjectUploadVersion, idcodec.VersionID(1))
	if !apierror.Is(err, apierror.KindInvalidInput) {
		t.Fatalf("Create with dangling version dependency = %v; want invalid_input", err)
	}
}

func TestDelete_RequiresDeleteVersionBit(t *testing.T) {
	svc, versions, _ := newTestService(t)
	v, err := version.New(idcodec.VersionID(1), idcodec.ProjectID(1), idcodec.UserID(1), "1-0-0", "First", version.TypeRelease)
	if err != nil {
		t.Fatalf("version.New: %v", err)
	}
	versions.byID[v.ID()] = v

	err = svc.Delete(context.Background(), v, 0)
	if !apierror.Is(err, apierror.KindInsufficientPerm) {
		t.Fatalf("Delete without DELETE_VERSION = %v; want insufficient_permission", err)
	}
}
