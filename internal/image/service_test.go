package image

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicuris/service/internal/metrics"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func newTestService(cleanup bool) (*Service, *memStore, *memStorage) {
	store := newMemStore()
	objects := newMemStorage()
	svc := NewService(store, objects, cleanup, zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }
	return svc, store, objects
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "uploads/abc-aspirin.png", ObjectKey("abc", "aspirin.png"))
	assert.Equal(t, "uploads/abc-../x y.png", ObjectKey("abc", "../x y.png"))
}

func TestService_Upload(t *testing.T) {
	svc, store, objects := newTestService(false)
	svc.newToken = func() string { return "tok" }

	res, err := svc.Upload(context.Background(), File{Filename: "aspirin.png", ContentType: "image/png", Data: pngBytes})
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.ID)
	assert.Equal(t, "https://cdn.example.com/meds/uploads/tok-aspirin.png", res.URL)

	obj, ok := objects.objects["uploads/tok-aspirin.png"]
	require.True(t, ok)
	assert.Equal(t, pngBytes, obj.data)
	assert.Equal(t, "image/png", obj.contentType)

	rec, err := store.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, Image{ID: 1, Filename: "aspirin.png", URL: res.URL, UploadedAt: fixedNow}, *rec)
}

func TestService_UploadKeepsDeclaredContentType(t *testing.T) {
	svc, _, objects := newTestService(false)

	_, err := svc.Upload(context.Background(), File{Filename: "x.bin", ContentType: "application/x-custom", Data: pngBytes})
	require.NoError(t, err)

	for _, obj := range objects.objects {
		assert.Equal(t, "application/x-custom", obj.contentType)
	}
}

func TestService_UploadSniffsMissingContentType(t *testing.T) {
	svc, _, objects := newTestService(false)

	_, err := svc.Upload(context.Background(), File{Filename: "x", Data: pngBytes})
	require.NoError(t, err)

	for _, obj := range objects.objects {
		assert.Equal(t, "image/png", obj.contentType)
	}
}

func TestService_SameFilenameGetsDistinctKeysAndRecords(t *testing.T) {
	svc, store, objects := newTestService(false)
	ctx := context.Background()

	a, err := svc.Upload(ctx, File{Filename: "pill.png", ContentType: "image/png", Data: pngBytes})
	require.NoError(t, err)
	b, err := svc.Upload(ctx, File{Filename: "pill.png", ContentType: "image/png", Data: pngBytes})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.URL, b.URL)

	keys := objects.keys()
	require.Len(t, keys, 2)
	for _, k := range keys {
		assert.True(t, strings.HasPrefix(k, "uploads/"), k)
		assert.True(t, strings.HasSuffix(k, "-pill.png"), k)
	}

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestService_StorageWriteFailureWritesNoMetadata(t *testing.T) {
	svc, store, objects := newTestService(false)
	objects.putErr = errors.New("InvalidAccessKeyId")

	res, err := svc.Upload(context.Background(), File{Filename: "a.png", ContentType: "image/png", Data: pngBytes})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrStorageWrite)
	assert.ErrorIs(t, err, objects.putErr)
	assert.NotErrorIs(t, err, ErrPersistence)

	all, _ := store.List(context.Background())
	assert.Empty(t, all)
	assert.Empty(t, objects.keys())
}

func TestService_MetadataFailureLeavesOrphanObject(t *testing.T) {
	svc, store, objects := newTestService(false)
	svc.newToken = func() string { return "orphan" }
	store.createErr = errors.New("relation \"images\" does not exist")

	before := testutil.ToFloat64(metrics.OrphanObjectsTotal)

	res, err := svc.Upload(context.Background(), File{Filename: "a.png", ContentType: "image/png", Data: pngBytes})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, store.createErr)
	assert.NotErrorIs(t, err, ErrStorageWrite)

	assert.Equal(t, []string{"uploads/orphan-a.png"}, objects.keys())
	assert.Empty(t, objects.deleted)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.OrphanObjectsTotal))

	all, _ := store.List(context.Background())
	assert.Empty(t, all)
}

func TestService_MetadataFailureWithCleanupDeletesObject(t *testing.T) {
	svc, store, objects := newTestService(true)
	svc.newToken = func() string { return "t" }
	store.createErr = errors.New("deadlock detected")

	before := testutil.ToFloat64(metrics.OrphanObjectsTotal)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := svc.Upload(ctx, File{Filename: "a.png", ContentType: "image/png", Data: pngBytes})
	assert.ErrorIs(t, err, ErrPersistence)

	assert.Equal(t, []string{"uploads/t-a.png"}, objects.deleted)
	assert.Empty(t, objects.keys())
	assert.Equal(t, before, testutil.ToFloat64(metrics.OrphanObjectsTotal))
}

func TestService_CleanupFailureStillReportsPersistenceError(t *testing.T) {
	svc, store, objects := newTestService(true)
	store.createErr = errors.New("disk full")
	objects.deleteErr = errors.New("AccessDenied")

	before := testutil.ToFloat64(metrics.OrphanObjectsTotal)

	_, err := svc.Upload(context.Background(), File{Filename: "a.png", ContentType: "image/png", Data: pngBytes})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.NotErrorIs(t, err, objects.deleteErr)
	assert.Len(t, objects.keys(), 1)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.OrphanObjectsTotal))
}

func TestService_OrphanIsLoggedDistinctly(t *testing.T) {
	var buf strings.Builder
	store := newMemStore()
	store.createErr = errors.New("insert failed")
	svc := NewService(store, newMemStorage(), false, zerolog.New(&buf))
	svc.newToken = func() string { return "k" }

	_, err := svc.Upload(context.Background(), File{Filename: "a.png", ContentType: "image/png", Data: pngBytes})
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "orphan object: metadata insert failed")
	assert.Contains(t, out, `"key":"uploads/k-a.png"`)
	assert.Contains(t, out, `"bucket":"meds"`)
	assert.Contains(t, out, `"url":"https://cdn.example.com/meds/uploads/k-a.png"`)
}

func TestService_GetAndList(t *testing.T) {
	svc, _, _ := newTestService(false)
	ctx := context.Background()

	_, err := svc.GetByID(ctx, 1)
	assert.True(t, svc.IsNotFound(err))

	res, err := svc.Upload(ctx, File{Filename: "a.png", ContentType: "image/png", Data: pngBytes})
	require.NoError(t, err)

	img, err := svc.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.URL, img.URL)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
