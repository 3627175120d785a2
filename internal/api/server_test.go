package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/qlayout/pkg/cell"
	"github.com/matzehuels/qlayout/pkg/design"
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/gdsii"
	"github.com/matzehuels/qlayout/pkg/geom"
)

const lineDesign = `{"transmission_lines": {"tl0": {"name": "tl0", "type": "TransmissionLine", "pos": [(0, 0), (1000, 0)], "width": 10}}}`

func newTestServer(t *testing.T, store design.Store) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(Options{Store: store}).Router())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func doJSON(t *testing.T, method, url string, in, out any) int {
	t.Helper()
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(data)
	}
	resp := do(t, method, url, "application/json", body)
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	var body map[string]string
	if code := doJSON(t, http.MethodGet, srv.URL+"/healthz", nil, &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestDesignLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	var created designResponse
	code := doJSON(t, http.MethodPost, srv.URL+"/designs/", createDesignRequest{Name: "chip", Options: lineDesign}, &created)
	if code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}
	if created.Name != "chip" || len(created.Components) != 1 || created.ID == "" {
		t.Errorf("created = %+v", created)
	}

	var dup errorResponse
	if code := doJSON(t, http.MethodPost, srv.URL+"/designs/", createDesignRequest{Name: "chip"}, &dup); code != http.StatusConflict {
		t.Errorf("duplicate status = %d", code)
	}
	if dup.Error.Code != "DESIGN_EXISTS" {
		t.Errorf("duplicate error = %+v", dup)
	}

	var got designResponse
	if code := doJSON(t, http.MethodGet, srv.URL+"/designs/chip", nil, &got); code != http.StatusOK {
		t.Fatalf("get status = %d", code)
	}
	if got.ID != created.ID {
		t.Errorf("id changed: %s -> %s", created.ID, got.ID)
	}

	var list map[string][]string
	doJSON(t, http.MethodGet, srv.URL+"/designs/", nil, &list)
	if diff := cmp.Diff([]string{"chip"}, list["open"]); diff != "" {
		t.Errorf("open designs (-want +got):\n%s", diff)
	}

	if code := doJSON(t, http.MethodDelete, srv.URL+"/designs/chip", nil, nil); code != http.StatusNoContent {
		t.Errorf("delete status = %d", code)
	}
	var missing errorResponse
	if code := doJSON(t, http.MethodGet, srv.URL+"/designs/chip", nil, &missing); code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", code)
	}
	if missing.Error.Code != "DESIGN_NOT_FOUND" {
		t.Errorf("error = %+v", missing)
	}
}

func TestCreateDesignRejectsBadOptions(t *testing.T) {
	srv := newTestServer(t, nil)
	tests := []struct {
		name string
		req  createDesignRequest
		want int
	}{
		{"bad name", createDesignRequest{Name: "a/b"}, http.StatusBadRequest},
		{"bad literal", createDesignRequest{Name: "x", Options: `{"a": `}, http.StatusBadRequest},
		{"not sections", createDesignRequest{Name: "x", Options: `{"a": 1}`}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := doJSON(t, http.MethodPost, srv.URL+"/designs/", tt.req, nil); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
		})
	}
	var list map[string][]string
	doJSON(t, http.MethodGet, srv.URL+"/designs/", nil, &list)
	if len(list["open"]) != 0 {
		t.Errorf("failed creates left designs: %v", list["open"])
	}
}

func TestAddAndRemoveComponent(t *testing.T) {
	srv := newTestServer(t, nil)
	doJSON(t, http.MethodPost, srv.URL+"/designs/", createDesignRequest{Name: "chip"}, nil)

	literal := addComponentRequest{Record: json.RawMessage(`"{\"name\": \"p0\", \"type\": \"Pin\", \"gds_pos\": (5, 5)}"`)}
	var d designResponse
	if code := doJSON(t, http.MethodPost, srv.URL+"/designs/chip/components/pins", literal, &d); code != http.StatusCreated {
		t.Fatalf("add literal status = %d", code)
	}
	object := addComponentRequest{Record: json.RawMessage(`{"name": "p1", "type": "Pin", "gds_pos": [10, 0]}`)}
	if code := doJSON(t, http.MethodPost, srv.URL+"/designs/chip/components/pins", object, &d); code != http.StatusCreated {
		t.Fatalf("add object status = %d", code)
	}
	want := []componentInfo{{"pins", "p0", "Pin"}, {"pins", "p1", "Pin"}}
	if diff := cmp.Diff(want, d.Components); diff != "" {
		t.Errorf("components (-want +got):\n%s", diff)
	}

	unknown := addComponentRequest{Record: json.RawMessage(`{"name": "q", "type": "NoSuchType"}`)}
	if code := doJSON(t, http.MethodPost, srv.URL+"/designs/chip/components/misc", unknown, nil); code == http.StatusCreated {
		t.Error("unknown type was accepted")
	}

	if code := doJSON(t, http.MethodDelete, srv.URL+"/designs/chip/components/p0", nil, &d); code != http.StatusOK {
		t.Fatalf("remove status = %d", code)
	}
	if len(d.Components) != 1 || d.Components[0].Name != "p1" {
		t.Errorf("components after remove = %+v", d.Components)
	}
}

func TestBridges(t *testing.T) {
	srv := newTestServer(t, nil)
	doJSON(t, http.MethodPost, srv.URL+"/designs/", createDesignRequest{Name: "chip", Options: lineDesign}, nil)

	var resp bridgesResponse
	req := bridgesRequest{LineType: "transmission_lines", Line: "tl0", Optimize: true}
	if code := doJSON(t, http.MethodPost, srv.URL+"/designs/chip/bridges", req, &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(resp.Added) != 8 {
		t.Errorf("added %d bridges, want 8: %v", len(resp.Added), resp.Added)
	}
	if resp.Report == nil || len(resp.Report.Kept) != 8 || len(resp.Report.Removed) != 0 {
		t.Errorf("report = %+v", resp.Report)
	}

	var d designResponse
	doJSON(t, http.MethodGet, srv.URL+"/designs/chip", nil, &d)
	if len(d.Components) != 9 {
		t.Errorf("design has %d components, want 9", len(d.Components))
	}

	var bad errorResponse
	req = bridgesRequest{LineType: "transmission_lines", Line: "nope"}
	if code := doJSON(t, http.MethodPost, srv.URL+"/designs/chip/bridges", req, &bad); code != http.StatusBadRequest {
		t.Errorf("unknown line status = %d (%+v)", code, bad)
	}
}

func TestGDSAndSVG(t *testing.T) {
	srv := newTestServer(t, nil)
	doJSON(t, http.MethodPost, srv.URL+"/designs/", createDesignRequest{Name: "chip", Options: lineDesign}, nil)

	resp := do(t, http.MethodGet, srv.URL+"/designs/chip/gds", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("gds status = %d", resp.StatusCode)
	}
	lib, err := gdsii.Read(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if lib.Cell(design.TopCellName) == nil {
		t.Error("gds has no top cell")
	}

	resp = do(t, http.MethodGet, srv.URL+"/designs/chip/svg?width=300", "", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("svg status = %d, type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `width="300"`) {
		t.Errorf("svg = %.120s", body)
	}

	resp = do(t, http.MethodGet, srv.URL+"/designs/chip/svg?width=wide", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad width status = %d", resp.StatusCode)
	}
}

func TestImport(t *testing.T) {
	srv := newTestServer(t, nil)
	doJSON(t, http.MethodPost, srv.URL+"/designs/", createDesignRequest{Name: "chip"}, nil)

	lib := cell.NewLibrary("PARTS")
	_ = lib.Add(cell.New("pad").AddPolygon(cell.Rect(geom.Pt(0, 0), geom.Pt(10, 10), 1)))
	var buf bytes.Buffer
	if err := gdsii.Write(&buf, lib); err != nil {
		t.Fatal(err)
	}

	resp := do(t, http.MethodPost, srv.URL+"/designs/chip/import?type=parts&chip=chip2", "application/octet-stream", bytes.NewReader(buf.Bytes()))
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("import status = %d: %s", resp.StatusCode, body)
	}
	var res importResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Section != "parts" || len(res.Components) != 1 || res.Components[0] != "pad" {
		t.Errorf("import = %+v", res)
	}

	resp = do(t, http.MethodPost, srv.URL+"/designs/chip/import", "application/octet-stream", strings.NewReader("junk"))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("junk import status = %d", resp.StatusCode)
	}
}

func TestStoreBackedServers(t *testing.T) {
	store, err := design.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	a := newTestServer(t, store)
	b := newTestServer(t, store)

	var created designResponse
	doJSON(t, http.MethodPost, a.URL+"/designs/", createDesignRequest{Name: "shared", Options: lineDesign}, &created)

	var got designResponse
	if code := doJSON(t, http.MethodGet, b.URL+"/designs/shared", nil, &got); code != http.StatusOK {
		t.Fatalf("second server status = %d", code)
	}
	if got.ID != created.ID || len(got.Components) != 1 {
		t.Errorf("restored = %+v", got)
	}
	if code := doJSON(t, http.MethodPost, b.URL+"/designs/", createDesignRequest{Name: "shared"}, nil); code != http.StatusConflict {
		t.Errorf("create over stored design status = %d", code)
	}

	if code := doJSON(t, http.MethodDelete, b.URL+"/designs/shared", nil, nil); code != http.StatusNoContent {
		t.Errorf("delete status = %d", code)
	}
	names, _ := store.List(context.Background())
	if len(names) != 0 {
		t.Errorf("store still holds %v", names)
	}
}

// flakyStore is a FileStore whose saves fail while down is set.
type flakyStore struct {
	*design.FileStore
	down atomic.Bool
}

func (s *flakyStore) Save(ctx context.Context, name string, data []byte) error {
	if s.down.Load() {
		return errors.New(errors.ErrCodeInternal, "store down")
	}
	return s.FileStore.Save(ctx, name, data)
}

func TestFailedSaveLeavesDesignUnchanged(t *testing.T) {
	fs, err := design.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store := &flakyStore{FileStore: fs}
	srv := newTestServer(t, store)
	if code := doJSON(t, http.MethodPost, srv.URL+"/designs/", createDesignRequest{Name: "chip"}, nil); code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}

	store.down.Store(true)
	pin := addComponentRequest{Record: json.RawMessage(`{"name": "p0", "type": "Pin", "gds_pos": [0, 0]}`)}
	if code := doJSON(t, http.MethodPost, srv.URL+"/designs/chip/components/pins", pin, nil); code != http.StatusInternalServerError {
		t.Errorf("add with store down status = %d", code)
	}
	var got designResponse
	if code := doJSON(t, http.MethodGet, srv.URL+"/designs/chip", nil, &got); code != http.StatusOK {
		t.Fatalf("get status = %d", code)
	}
	if len(got.Components) != 0 {
		t.Errorf("components after failed save = %+v", got.Components)
	}

	if code := doJSON(t, http.MethodPost, srv.URL+"/designs/", createDesignRequest{Name: "other"}, nil); code != http.StatusInternalServerError {
		t.Errorf("create with store down status = %d", code)
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/designs/other", nil, nil); code != http.StatusNotFound {
		t.Errorf("design created by a failed request is visible, status = %d", code)
	}

	store.down.Store(false)
	if code := doJSON(t, http.MethodPost, srv.URL+"/designs/chip/components/pins", pin, &got); code != http.StatusCreated {
		t.Fatalf("add after recovery status = %d", code)
	}
	if len(got.Components) != 1 {
		t.Errorf("components = %+v", got.Components)
	}
}

func TestIntersections(t *testing.T) {
	srv := newTestServer(t, nil)
	req := intersectionsRequest{Paths: [][]geom.Point{
		{{X: 0, Y: 0}, {X: 10, Y: 10}},
		{{X: 0, Y: 10}, {X: 10, Y: 0}},
		{{X: 20, Y: 20}, {X: 30, Y: 20}},
	}}
	var resp struct {
		Crossings []pairIntersections `json:"crossings"`
	}
	if code := doJSON(t, http.MethodPost, srv.URL+"/geometry/intersections", req, &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	want := []pairIntersections{{A: 0, B: 1, Points: []geom.Point{{X: 5, Y: 5}}}}
	if diff := cmp.Diff(want, resp.Crossings); diff != "" {
		t.Errorf("crossings (-want +got):\n%s", diff)
	}

	bad := intersectionsRequest{Paths: [][]geom.Point{{{X: 0, Y: 0}}}}
	if code := doJSON(t, http.MethodPost, srv.URL+"/geometry/intersections", bad, nil); code != http.StatusBadRequest {
		t.Errorf("single point path status = %d", code)
	}
}

func TestBBox(t *testing.T) {
	srv := newTestServer(t, nil)
	var resp bboxResponse
	req := bboxRequest{Points: []geom.Point{{X: -1, Y: 2}, {X: 3, Y: -4}}}
	if code := doJSON(t, http.MethodPost, srv.URL+"/geometry/bbox", req, &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	want := bboxResponse{Min: geom.Pt(-1, -4), Max: geom.Pt(3, 2), Width: 4, Height: 6, Center: geom.Pt(1, -1)}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("bbox (-want +got):\n%s", diff)
	}
	if code := doJSON(t, http.MethodPost, srv.URL+"/geometry/bbox", bboxRequest{}, nil); code != http.StatusBadRequest {
		t.Errorf("empty bbox status = %d", code)
	}
}

func TestPhysical(t *testing.T) {
	srv := newTestServer(t, nil)
	var resp physicalResponse
	req := map[string]any{
		"positions": map[string]any{"q0": map[string]int{"x": 1, "y": 2}},
		"spacing":   200,
	}
	if code := doJSON(t, http.MethodPost, srv.URL+"/topology/physical", req, &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp.Positions["q0"] != geom.Pt(200, 400) {
		t.Errorf("q0 = %v", resp.Positions["q0"])
	}
	if code := doJSON(t, http.MethodPost, srv.URL+"/topology/physical", map[string]any{"bogus": 1}, nil); code != http.StatusBadRequest {
		t.Errorf("unknown field status = %d", code)
	}
}
