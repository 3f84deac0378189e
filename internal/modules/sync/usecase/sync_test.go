package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	reviewoutadapter "komekome/internal/modules/review/adapter/out"
	reviewdomain "komekome/internal/modules/review/domain"
	reviewdto "komekome/internal/modules/review/dto"
	reviewin "komekome/internal/modules/review/port/in"
	reviewservice "komekome/internal/modules/review/service"
	reviewusecase "komekome/internal/modules/review/usecase"
	syncoutadapter "komekome/internal/modules/sync/adapter/out"
	"komekome/internal/modules/sync/domain"
	syncin "komekome/internal/modules/sync/port/in"
	"komekome/internal/modules/sync/service"
	"komekome/internal/modules/sync/usecase"
	apperrors "komekome/internal/platform/errors"
)

type fixedClock struct{ at time.Time }

func (f fixedClock) Now() time.Time { return f.at }

type prefixID struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func (p *prefixID) New() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	return p.prefix + "-" + strconv.Itoa(p.n)
}

// fakeRemote is an in-memory KV with switchable failure modes: fully
// offline, or reachable but rejecting writes.
type fakeRemote struct {
	mu        sync.Mutex
	data      map[string][]byte
	offline   bool
	rejecting bool
	puts      int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{data: map[string][]byte{}}
}

func (f *fakeRemote) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return nil, domain.ErrRemoteUnavailable
	}
	raw, ok := f.data[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return raw, nil
}

func (f *fakeRemote) Put(_ context.Context, key string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return domain.ErrRemoteUnavailable
	}
	if f.rejecting {
		return domain.ErrPermanentRejection
	}
	f.puts++
	f.data[key] = append([]byte(nil), payload...)
	return nil
}

func (f *fakeRemote) List(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return nil, domain.ErrRemoteUnavailable
	}
	keys := []string{}
	for key := range f.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *fakeRemote) setOffline(offline bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = offline
}

func (f *fakeRemote) setRejecting(rejecting bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejecting = rejecting
}

func (f *fakeRemote) putJSON(t *testing.T, key string, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", key, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = raw
}

// device wires a full review+sync stack over its own data directory, the way
// one installation would run it.
type device struct {
	review reviewin.Usecase
	sync   syncin.Usecase
}

func newDevice(t *testing.T, name string, remote *fakeRemote, items []reviewdomain.Item) device {
	t.Helper()
	dir := t.TempDir()
	clk := fixedClock{at: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)}

	itemStore := reviewoutadapter.NewFileItemStore(dir)
	attemptLog := reviewoutadapter.NewFileAttemptLog(dir)
	activeStore := reviewoutadapter.NewFileActiveSessionStore(dir)
	if items != nil {
		if err := itemStore.SaveAll(context.Background(), items); err != nil {
			t.Fatalf("seed items: %v", err)
		}
	}
	reviewUC := reviewusecase.NewInteractor(
		reviewservice.NewReviewService(clk, &prefixID{prefix: name + "-sess"}, &prefixID{prefix: name + "-a"}, itemStore, attemptLog, reviewdomain.DefaultPolicy()),
		itemStore, attemptLog, activeStore,
	)
	syncUC := usecase.NewInteractor(
		service.NewSyncService(clk, remote, syncoutadapter.NewFilePendingQueueStore(dir), syncoutadapter.NewFileContentCacheStore(dir)),
		reviewUC,
	)
	return device{review: reviewUC, sync: syncUC}
}

func runSession(t *testing.T, d device, results []string) (string, []string) {
	t.Helper()
	ctx := context.Background()
	if _, err := d.review.StartSession(ctx); err != nil {
		t.Fatalf("start session: %v", err)
	}
	var last reviewdto.AnswerOutput
	for i, result := range results {
		out, err := d.review.SubmitAnswer(ctx, reviewdto.AnswerInput{Result: result})
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		last = out
	}
	if !last.Finished {
		t.Fatalf("session should have finished")
	}
	return last.SessionID, last.SessionAttemptIDs
}

func TestOfflineSessionBatchIsQueuedAndFlushedExactlyOnce(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote()
	d := newDevice(t, "dev1", remote, []reviewdomain.Item{{ID: "itm-1", Title: "one"}})
	ctx := context.Background()

	sessionID, attemptIDs := runSession(t, d, []string{"correct"})

	remote.setOffline(true)
	enq, err := d.sync.EnqueueSessionBatch(ctx, sessionID, attemptIDs)
	if err != nil {
		t.Fatalf("enqueue while offline: %v", err)
	}
	if enq.Delivered || !enq.Queued {
		t.Fatalf("offline push must queue, got %+v", enq)
	}
	status, err := d.sync.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.PendingBatches != 1 || status.PendingAttempts != 1 {
		t.Fatalf("expected 1 pending batch with 1 attempt, got %+v", status)
	}

	// Still offline: flushing delivers nothing and loses nothing.
	flush, err := d.sync.FlushPending(ctx)
	if err != nil {
		t.Fatalf("flush offline: %v", err)
	}
	if flush.Delivered != 0 || flush.Remaining != 1 {
		t.Fatalf("offline flush must keep the batch, got %+v", flush)
	}

	remote.setOffline(false)
	flush, err = d.sync.FlushPending(ctx)
	if err != nil {
		t.Fatalf("flush online: %v", err)
	}
	if flush.Delivered != 1 || flush.Remaining != 0 {
		t.Fatalf("online flush must deliver the batch, got %+v", flush)
	}

	keys, err := remote.List(ctx, domain.AttemptPrefix)
	if err != nil {
		t.Fatalf("list remote: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected exactly one remote batch, got %v", keys)
	}

	// Replaying the flush pushes nothing further.
	before := remote.puts
	if _, err := d.sync.FlushPending(ctx); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if remote.puts != before {
		t.Fatalf("empty queue must not push")
	}
}

func TestTwoDevicesConvergeToTheUnionOfAttempts(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote()
	items := []reviewdomain.Item{{ID: "itm-1", Title: "one"}}
	dev1 := newDevice(t, "dev1", remote, items)
	dev2 := newDevice(t, "dev2", remote, items)
	ctx := context.Background()

	s1, ids1 := runSession(t, dev1, []string{"correct"})
	s2, ids2 := runSession(t, dev2, []string{"correct"})

	if _, err := dev1.sync.EnqueueSessionBatch(ctx, s1, ids1); err != nil {
		t.Fatalf("dev1 push: %v", err)
	}
	if _, err := dev2.sync.EnqueueSessionBatch(ctx, s2, ids2); err != nil {
		t.Fatalf("dev2 push: %v", err)
	}

	out1, err := dev1.sync.SyncNow(ctx)
	if err != nil {
		t.Fatalf("dev1 sync: %v", err)
	}
	if out1.AttemptsAdopted != 1 {
		t.Fatalf("dev1 must adopt dev2's attempt, got %d", out1.AttemptsAdopted)
	}
	out2, err := dev2.sync.SyncNow(ctx)
	if err != nil {
		t.Fatalf("dev2 sync: %v", err)
	}
	if out2.AttemptsAdopted != 1 {
		t.Fatalf("dev2 must adopt dev1's attempt, got %d", out2.AttemptsAdopted)
	}

	all1, _ := dev1.review.ListAttempts(ctx)
	all2, _ := dev2.review.ListAttempts(ctx)
	if len(all1) != 2 || len(all2) != 2 {
		t.Fatalf("both devices must hold the union: %d and %d", len(all1), len(all2))
	}
	for i := range all1 {
		if all1[i].ID != all2[i].ID {
			t.Fatalf("devices disagree on record order: %s vs %s", all1[i].ID, all2[i].ID)
		}
	}

	// A second pass on either side changes nothing.
	again, err := dev1.sync.SyncNow(ctx)
	if err != nil {
		t.Fatalf("dev1 repeat sync: %v", err)
	}
	if again.AttemptsAdopted != 0 || again.Pushed != 0 {
		t.Fatalf("repeat sync must be a no-op, got %+v", again)
	}
}

func TestSyncNowPullsContentAndFallsBackToCacheWhenOffline(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote()
	remote.putJSON(t, domain.ContentKey, domain.ContentBundle{
		Version: 3,
		Items: []reviewdto.ContentItem{
			{ID: "itm-1", Title: "one"},
			{ID: "itm-2", Title: "two"},
		},
	})
	d := newDevice(t, "dev1", remote, nil)
	ctx := context.Background()

	out, err := d.sync.SyncNow(ctx)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if out.Status != string(domain.StatusSynced) {
		t.Fatalf("expected synced, got %s", out.Status)
	}
	if out.ContentCreated != 2 || out.UsedCache {
		t.Fatalf("expected 2 fresh items from the remote, got %+v", out)
	}

	remote.setOffline(true)
	out, err = d.sync.SyncNow(ctx)
	if err != nil {
		t.Fatalf("offline sync: %v", err)
	}
	if out.Status != string(domain.StatusOffline) {
		t.Fatalf("expected offline status, got %s", out.Status)
	}
	if !out.UsedCache {
		t.Fatalf("offline pull must serve the cached bundle")
	}
	if out.ContentUpdated != 2 {
		t.Fatalf("cached items still merge, got %+v", out)
	}

	items, err := d.review.ListItems(ctx)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("local item set must survive offline, got %d", len(items))
	}
}

func TestContentPullNeverClobbersLocalProgress(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote()
	remote.putJSON(t, domain.ContentKey, domain.ContentBundle{
		Version: 1,
		Items:   []reviewdto.ContentItem{{ID: "itm-1", Title: "before"}},
	})
	d := newDevice(t, "dev1", remote, nil)
	ctx := context.Background()

	if _, err := d.sync.SyncNow(ctx); err != nil {
		t.Fatalf("initial sync: %v", err)
	}
	sessionID, ids := runSession(t, d, []string{"correct"})
	if _, err := d.sync.EnqueueSessionBatch(ctx, sessionID, ids); err != nil {
		t.Fatalf("push: %v", err)
	}

	remote.putJSON(t, domain.ContentKey, domain.ContentBundle{
		Version: 2,
		Items:   []reviewdto.ContentItem{{ID: "itm-1", Title: "after"}},
	})
	if _, err := d.sync.SyncNow(ctx); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	items, err := d.review.ListItems(ctx)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if items[0].Title != "after" {
		t.Fatalf("content must update, got %q", items[0].Title)
	}
	if items[0].IntervalIndex != 1 || items[0].NextReview != "2026-09-03" {
		t.Fatalf("local schedule must survive the pull: %+v", items[0])
	}
}

func TestMalformedRemoteBatchIsSkippedNotFatal(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote()
	remote.data[domain.AttemptPrefix+"broken"] = []byte("{not json")
	remote.putJSON(t, domain.AttemptPrefix+"good", domain.Batch{
		ID: "good",
		Attempts: []reviewdto.AttemptRecord{
			{ID: "a_r1", ItemID: "itm-1", Date: "2026-08-30", Result: "correct"},
		},
	})
	d := newDevice(t, "dev1", remote, []reviewdomain.Item{{ID: "itm-1", Title: "one"}})

	out, err := d.sync.SyncNow(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if out.AttemptsAdopted != 1 {
		t.Fatalf("the healthy batch must still merge, got %d adopted", out.AttemptsAdopted)
	}
	if out.Status != string(domain.StatusSynced) {
		t.Fatalf("a skipped document is not a sync failure, got %s", out.Status)
	}
}

func TestSyncNowPushesAttemptsTheRemoteNeverSaw(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote()
	d := newDevice(t, "dev1", remote, []reviewdomain.Item{{ID: "itm-1", Title: "one"}})
	ctx := context.Background()

	// Session recorded but its batch push never happened (e.g. crash).
	runSession(t, d, []string{"correct"})

	out, err := d.sync.SyncNow(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if out.Pushed != 1 {
		t.Fatalf("the unsent attempt must be pushed, got %d", out.Pushed)
	}
	keys, _ := remote.List(ctx, domain.AttemptPrefix)
	if len(keys) != 1 {
		t.Fatalf("expected one remote batch, got %v", keys)
	}
}

func TestMalformedContentDocumentStillMergesAttempts(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote()
	remote.data[domain.ContentKey] = []byte("{not json")
	remote.putJSON(t, domain.AttemptPrefix+"good", domain.Batch{
		ID: "good",
		Attempts: []reviewdto.AttemptRecord{
			{ID: "a_r1", ItemID: "itm-1", Date: "2026-08-30", Result: "correct"},
		},
	})
	d := newDevice(t, "dev1", remote, []reviewdomain.Item{{ID: "itm-1", Title: "one"}})

	out, err := d.sync.SyncNow(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if out.AttemptsAdopted != 1 {
		t.Fatalf("a broken content document must not block the attempt merge, got %d adopted", out.AttemptsAdopted)
	}
	if out.Status != string(domain.StatusError) {
		t.Fatalf("the discarded document is still reported, got status %s", out.Status)
	}
	if !strings.Contains(out.Message, domain.ContentKey) {
		t.Fatalf("message should name the bad key, got %q", out.Message)
	}
}

func TestPermanentlyRejectedBatchWaitsForExplicitFlush(t *testing.T) {
	t.Parallel()
	remote := newFakeRemote()
	d := newDevice(t, "dev1", remote, []reviewdomain.Item{{ID: "itm-1", Title: "one"}})
	ctx := context.Background()

	sessionID, attemptIDs := runSession(t, d, []string{"correct"})

	remote.setRejecting(true)
	enq, err := d.sync.EnqueueSessionBatch(ctx, sessionID, attemptIDs)
	if !errors.Is(err, domain.ErrPermanentRejection) {
		t.Fatalf("a rejected push surfaces the rejection, got %v", err)
	}
	if !enq.Queued {
		t.Fatalf("the batch must stay durable in the queue: %+v", enq)
	}

	// Remote accepts again; the automatic pass must leave the held batch
	// alone (its attempts travel via the push of locally-unique attempts).
	remote.setRejecting(false)
	out, err := d.sync.SyncNow(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if out.BatchesFlushed != 0 {
		t.Fatalf("a held batch must not be retried automatically, got %d flushed", out.BatchesFlushed)
	}
	if out.Pushed != 1 {
		t.Fatalf("the attempt itself still syncs, got %d pushed", out.Pushed)
	}
	if out.PendingBatches != 1 {
		t.Fatalf("the held batch stays queued, got %d pending", out.PendingBatches)
	}

	flush, err := d.sync.FlushPending(ctx)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if flush.Delivered != 1 || flush.Remaining != 0 {
		t.Fatalf("an explicit flush retries held batches, got %+v", flush)
	}
}
