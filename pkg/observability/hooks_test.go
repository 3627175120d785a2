package observability

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnImportStart(ctx, "chip.gds")
	p.OnImportComplete(ctx, "chip.gds", 12, time.Second, nil)
	p.OnBuildStart(ctx, "design", 40)
	p.OnBuildComplete(ctx, "design", time.Second, nil)
	p.OnExportStart(ctx, "gds")
	p.OnExportComplete(ctx, "gds", 4096, time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "import")
	c.OnCacheMiss(ctx, "import")
	c.OnCacheSet(ctx, "import", 1024)

	s := NoopStoreHooks{}
	s.OnLoad(ctx, "file", "design", time.Millisecond, nil)
	s.OnSave(ctx, "redis", "design", 512, time.Millisecond, nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("Store() should return NoopStoreHooks by default")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customStore := &testStoreHooks{}
	SetStoreHooks(customStore)
	if Store() != customStore {
		t.Error("SetStoreHooks should set custom hooks")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("Reset() should restore NoopStoreHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)
	SetPipelineHooks(nil)

	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}
}

func TestHooksReceiveEvents(t *testing.T) {
	Reset()
	defer Reset()

	rec := &recordingHooks{}
	SetPipelineHooks(rec)

	ctx := context.Background()
	Pipeline().OnImportStart(ctx, "a.gds")
	Pipeline().OnImportComplete(ctx, "a.gds", 3, time.Millisecond, nil)

	if len(rec.imports) != 1 || rec.imports[0] != 3 {
		t.Errorf("imports = %v", rec.imports)
	}
}

// Test implementations
type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testStoreHooks struct{ NoopStoreHooks }

type recordingHooks struct {
	NoopPipelineHooks
	mu      sync.Mutex
	imports []int
}

func (r *recordingHooks) OnImportComplete(_ context.Context, _ string, n int, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imports = append(r.imports, n)
}
