package hooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/audiogram/internal/scene"
)

type recorded struct {
	method, path, contentType string
	body                      []byte
	file                      string
	fileData                  []byte
}

func hookServer(t *testing.T, status int) (*httptest.Server, func() []recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, contentType: r.Header.Get("Content-Type")}
		if r.URL.Path == "/finish" {
			f, hdr, err := r.FormFile("video")
			if err == nil {
				rec.file = hdr.Filename
				rec.fileData, _ = io.ReadAll(f)
				f.Close()
			}
		} else {
			rec.body, _ = io.ReadAll(r.Body)
		}
		mu.Lock()
		reqs = append(reqs, rec)
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), reqs...)
	}
}

func TestHTTPNotifier(t *testing.T) {
	srv, requests := hookServer(t, http.StatusOK)
	n := NewHTTPNotifier(scene.Hooks{
		UpdateHook: srv.URL + "/update",
		ErrorHook:  srv.URL + "/error",
		FinishHook: srv.URL + "/finish",
	}, time.Second)
	ctx := context.Background()

	video := filepath.Join(t.TempDir(), "video.mp4")
	require.NoError(t, os.WriteFile(video, []byte("mp4 bytes"), 0644))

	require.NoError(t, n.UpdateStatus(ctx, "job", StatusRendering))
	require.NoError(t, n.ReportError(ctx, "job", "boom"))
	require.NoError(t, n.Deliver(ctx, "job", video))

	reqs := requests()
	require.Len(t, reqs, 3)

	assert.Equal(t, http.MethodPut, reqs[0].method)
	assert.Equal(t, "application/json", reqs[0].contentType)
	assert.JSONEq(t, `{"status":"RENDERING"}`, string(reqs[0].body))

	assert.Equal(t, http.MethodPost, reqs[1].method)
	assert.JSONEq(t, `{"message":"boom"}`, string(reqs[1].body))

	assert.Equal(t, http.MethodPost, reqs[2].method)
	assert.Equal(t, "video.mp4", reqs[2].file)
	assert.Equal(t, "mp4 bytes", string(reqs[2].fileData))
}

func TestHTTPNotifierSkipsEmptyHooks(t *testing.T) {
	n := NewHTTPNotifier(scene.Hooks{}, time.Second)
	ctx := context.Background()
	assert.NoError(t, n.UpdateStatus(ctx, "job", StatusFinished))
	assert.NoError(t, n.ReportError(ctx, "job", "x"))
	assert.NoError(t, n.Deliver(ctx, "job", "/does/not/exist"))
}

func TestHTTPNotifierFailures(t *testing.T) {
	srv, _ := hookServer(t, http.StatusInternalServerError)
	n := NewHTTPNotifier(scene.Hooks{UpdateHook: srv.URL + "/update", FinishHook: srv.URL + "/finish"}, time.Second)

	err := n.UpdateStatus(context.Background(), "job", StatusFinished)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	assert.Error(t, n.Deliver(context.Background(), "job", filepath.Join(t.TempDir(), "missing.mp4")))
}

type countingNotifier struct {
	calls int
	err   error
}

func (c *countingNotifier) UpdateStatus(context.Context, string, Status) error { c.calls++; return c.err }
func (c *countingNotifier) ReportError(context.Context, string, string) error  { c.calls++; return c.err }
func (c *countingNotifier) Deliver(context.Context, string, string) error      { c.calls++; return c.err }

func TestMulti(t *testing.T) {
	boom := errors.New("boom")
	a, b := &countingNotifier{err: boom}, &countingNotifier{}
	m := Multi{a, Nop{}, b}
	ctx := context.Background()

	assert.ErrorIs(t, m.UpdateStatus(ctx, "id", StatusQueued), boom)
	assert.ErrorIs(t, m.ReportError(ctx, "id", "msg"), boom)
	assert.ErrorIs(t, m.Deliver(ctx, "id", "path"), boom)
	assert.Equal(t, 3, a.calls)
	assert.Equal(t, 3, b.calls, "later notifiers still run")

	assert.NoError(t, Multi{Nop{}}.UpdateStatus(ctx, "id", StatusQueued))
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisStatus, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	rs := newRedisStatus(client, zerolog.Nop())
	rs.now = func() time.Time { return time.Unix(1700000000, 0) }
	return mr, rs, client
}

func TestRedisStatus(t *testing.T) {
	mr, rs, client := setupRedis(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, StatusChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, rs.UpdateStatus(ctx, "job-1", StatusRendering))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
	assert.Equal(t, Event{ID: "job-1", Status: StatusRendering, At: 1700000000}, ev)

	got, ok, err := rs.Get(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusRendering, got.Status)
	assert.Equal(t, int64(1700000000), got.At)
	assert.Equal(t, redisTTL, mr.TTL(redisKeyPrefix+"job-1"))

	require.NoError(t, rs.ReportError(ctx, "job-1", "decode failed"))
	got, _, _ = rs.Get(ctx, "job-1")
	assert.Equal(t, StatusError, got.Status)
	assert.Equal(t, "decode failed", got.Message)

	require.NoError(t, rs.Deliver(ctx, "job-2", "/data/video.mp4"))
	got, _, _ = rs.Get(ctx, "job-2")
	assert.Equal(t, StatusFinished, got.Status)
	assert.Equal(t, "/data/video.mp4", got.Export)

	_, ok, err = rs.Get(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStatusUnavailable(t *testing.T) {
	mr, rs, _ := setupRedis(t)
	mr.Close()
	assert.Error(t, rs.UpdateStatus(context.Background(), "job", StatusFinished))
}

type fakeS3 struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Deliverer(t *testing.T) {
	fake := &fakeS3{}
	d := newS3Deliverer(fake, "videos", "renders")
	assert.Equal(t, "renders/job-1.mp4", d.Key("job-1"))

	video := filepath.Join(t.TempDir(), "video.mp4")
	require.NoError(t, os.WriteFile(video, []byte("mp4"), 0644))

	ctx := context.Background()
	require.NoError(t, d.UpdateStatus(ctx, "job-1", StatusRendering))
	require.NoError(t, d.Deliver(ctx, "job-1", video))
	assert.Equal(t, "videos", *fake.in.Bucket)
	assert.Equal(t, "renders/job-1.mp4", *fake.in.Key)
	assert.Equal(t, "video/mp4", *fake.in.ContentType)
	assert.Equal(t, int64(3), *fake.in.ContentLength)
	assert.Equal(t, "mp4", string(fake.body))

	fake.err = errors.New("denied")
	assert.ErrorContains(t, d.Deliver(ctx, "job-1", video), "denied")
}
