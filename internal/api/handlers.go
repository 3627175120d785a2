package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/qlayout/pkg/airbridge"
	"github.com/matzehuels/qlayout/pkg/buildinfo"
	"github.com/matzehuels/qlayout/pkg/component"
	"github.com/matzehuels/qlayout/pkg/design"
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/gdsii"
	"github.com/matzehuels/qlayout/pkg/geom"
	"github.com/matzehuels/qlayout/pkg/options"
	"github.com/matzehuels/qlayout/pkg/pipeline"
	"github.com/matzehuels/qlayout/pkg/topo"
)

// =============================================================================
// Designs
// =============================================================================

type componentInfo struct {
	Section string `json:"section"`
	Name    string `json:"name"`
	Type    string `json:"type"`
}

type designResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Path       string          `json:"path,omitempty"`
	Components []componentInfo `json:"components"`
	Options    string          `json:"options"`
}

func newDesignResponse(d *design.Design) (designResponse, error) {
	lit, err := options.Format(options.MapOf(d.Ops))
	if err != nil {
		return designResponse{}, err
	}
	resp := designResponse{
		ID:         d.ID.String(),
		Name:       d.Name,
		Path:       d.Path,
		Components: []componentInfo{},
		Options:    lit,
	}
	for _, e := range d.Components() {
		resp.Components = append(resp.Components, componentInfo{
			Section: e.Section,
			Name:    e.Name,
			Type:    e.Record.Str(component.KeyType),
		})
	}
	return resp, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *Server) handleListDesigns(w http.ResponseWriter, r *http.Request) {
	open := s.registry.Names()
	stored := []string{}
	if s.store != nil {
		names, err := s.store.List(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		stored = names
	}
	writeJSON(w, http.StatusOK, map[string][]string{"open": open, "stored": stored})
}

type createDesignRequest struct {
	Name    string `json:"name"`
	Options string `json:"options,omitempty"`
}

func (s *Server) handleCreateDesign(w http.ResponseWriter, r *http.Request) {
	var req createDesignRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := r.Context()

	d, err := design.New(req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Options != "" {
		ops, err := parseMap(req.Options)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := d.InjectOptions(ops); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if s.store != nil {
		if _, err := s.store.Load(ctx, req.Name); err == nil {
			s.writeError(w, r, errors.New(errors.ErrCodeDesignExists, "design %s already exists", req.Name))
			return
		}
	}
	if _, err := s.registry.Create(req.Name); err != nil {
		s.writeError(w, r, err)
		return
	}
	err = s.mutate(ctx, req.Name, func(cur *design.Design) error {
		cur.ID = d.ID
		return cur.InjectOptions(d.Ops)
	})
	if err != nil {
		if derr := s.registry.Delete(req.Name); derr != nil {
			s.logger.Error("rollback failed", "design", req.Name, "err", derr)
		}
		s.writeError(w, r, err)
		return
	}
	s.respondDesign(w, r, req.Name, http.StatusCreated)
}

func (s *Server) handleGetDesign(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := s.loadDesign(r.Context(), name); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondDesign(w, r, name, http.StatusOK)
}

func (s *Server) handleDeleteDesign(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ctx := r.Context()
	openErr := s.registry.Delete(name)
	if s.store != nil {
		if _, err := s.store.Load(ctx, name); err == nil {
			if err := s.store.Delete(ctx, name); err != nil {
				s.writeError(w, r, err)
				return
			}
			openErr = nil
		}
	}
	if openErr != nil {
		s.writeError(w, r, openErr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addComponentRequest struct {
	// Record is either an option literal string or a JSON object.
	Record json.RawMessage `json:"record"`
}

func (s *Server) handleAddComponent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	section := chi.URLParam(r, "section")
	var req addComponentRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := recordFromJSON(req.Record)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.catalog.Build(rec); err != nil {
		s.writeError(w, r, err)
		return
	}
	err = s.mutate(r.Context(), name, func(d *design.Design) error {
		return d.Add(section, rec)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondDesign(w, r, name, http.StatusCreated)
}

func (s *Server) handleRemoveComponent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	comp := chi.URLParam(r, "component")
	err := s.mutate(r.Context(), name, func(d *design.Design) error {
		return d.Remove(comp)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondDesign(w, r, name, http.StatusOK)
}

type importResponse struct {
	Section    string   `json:"section"`
	Components []string `json:"components"`
	Warnings   []string `json:"warnings"`
	Cached     bool     `json:"cached"`
}

// handleImport reads a GDS file from the request body and adds its cells as
// components. Query parameters: type, chip, merge.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ctx := r.Context()
	if _, err := s.loadDesign(ctx, name); err != nil {
		s.writeError(w, r, err)
		return
	}

	tmp, err := s.spool(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer os.RemoveAll(filepath.Dir(tmp))

	q := r.URL.Query()
	merge, _ := strconv.ParseBool(q.Get("merge"))
	res, hit, err := s.runner.ImportWithCacheInfo(ctx, pipeline.Options{
		Path:  tmp,
		Type:  q.Get("type"),
		Chip:  q.Get("chip"),
		Merge: merge,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	err = s.mutate(ctx, name, func(d *design.Design) error {
		for _, rec := range res.Records {
			if err := d.Add(res.Section, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, importResponse{
		Section:    res.Section,
		Components: res.Names(),
		Warnings:   append([]string{}, res.Warnings...),
		Cached:     hit,
	})
}

// spool copies the request body into a private temporary .gds file.
func (s *Server) spool(w http.ResponseWriter, r *http.Request) (string, error) {
	dir, err := os.MkdirTemp("", "qlayout-upload-")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "create upload dir")
	}
	path := filepath.Join(dir, "upload.gds")
	f, err := os.Create(path)
	if err != nil {
		os.RemoveAll(dir)
		return "", errors.Wrap(errors.ErrCodeInternal, err, "create upload file")
	}
	n, err := io.Copy(f, http.MaxBytesReader(w, r.Body, s.maxUpload))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.RemoveAll(dir)
		return "", errors.New(errors.ErrCodeInvalidInput, "read upload: %v", err)
	}
	if n == 0 {
		os.RemoveAll(dir)
		return "", errors.New(errors.ErrCodeInvalidInput, "request body is empty")
	}
	return path, nil
}

type bridgesRequest struct {
	LineType  string   `json:"line_type"`
	Line      string   `json:"line"`
	Optimize  bool     `json:"optimize,omitempty"`
	Spacing   *float64 `json:"spacing,omitempty"`
	Clearance *float64 `json:"clearance,omitempty"`
}

type bridgesResponse struct {
	Added  []string          `json:"added"`
	Report *airbridge.Report `json:"report,omitempty"`
}

func (s *Server) handleBridges(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req bridgesRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	cfg := s.bridges
	if req.Spacing != nil {
		cfg.Spacing = *req.Spacing
	}
	if req.Clearance != nil {
		cfg.Clearance = *req.Clearance
	}

	var resp bridgesResponse
	err := s.mutate(r.Context(), name, func(d *design.Design) error {
		ops, added, err := airbridge.GenerateOps(d.Ops, req.LineType, req.Line, cfg)
		if err != nil {
			return err
		}
		resp.Added = added
		if req.Optimize {
			var report airbridge.Report
			ops, report, err = airbridge.Optimize(ops, cfg)
			if err != nil {
				return err
			}
			resp.Report = &report
		}
		return d.InjectOptions(ops)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGDS(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	d, err := s.loadDesign(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	lib, err := d.Clone().Build(r.Context(), s.catalog)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := gdsii.Write(&buf, lib); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.gds"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	d, err := s.loadDesign(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts := pipeline.Options{Cell: r.URL.Query().Get("cell")}
	if v := r.URL.Query().Get("width"); v != "" {
		width, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid width %q", v))
			return
		}
		opts.Width = width
	}
	svg, hit, err := s.runner.RenderDesignWithCacheInfo(r.Context(), d, s.catalog, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if hit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	_, _ = w.Write(svg)
}

// =============================================================================
// Geometry tools
// =============================================================================

type intersectionsRequest struct {
	Paths [][]geom.Point `json:"paths"`
}

type pairIntersections struct {
	A      int          `json:"a"`
	B      int          `json:"b"`
	Points []geom.Point `json:"points"`
}

func (s *Server) handleIntersections(w http.ResponseWriter, r *http.Request) {
	var req intersectionsRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	paths := make([]geom.Path, len(req.Paths))
	for i, p := range req.Paths {
		paths[i] = geom.Path(p)
		if !paths[i].Valid() {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "path %d needs at least two points", i))
			return
		}
	}
	out := []pairIntersections{}
	for i := range paths {
		for j := i + 1; j < len(paths); j++ {
			if pts := geom.PathIntersections(paths[i], paths[j]); len(pts) > 0 {
				out = append(out, pairIntersections{A: i, B: j, Points: pts})
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"crossings": out})
}

type bboxRequest struct {
	Points []geom.Point `json:"points"`
}

type bboxResponse struct {
	Min    geom.Point `json:"min"`
	Max    geom.Point `json:"max"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Center geom.Point `json:"center"`
}

func (s *Server) handleBBox(w http.ResponseWriter, r *http.Request) {
	var req bboxRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	box, ok := geom.BoxOf(req.Points)
	if !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "no points given"))
		return
	}
	writeJSON(w, http.StatusOK, bboxResponse{
		Min:    box.Min,
		Max:    box.Max,
		Width:  box.Width(),
		Height: box.Height(),
		Center: box.Center(),
	})
}

type physicalRequest struct {
	Positions map[string]topo.Pos `json:"positions"`
	Spacing   float64             `json:"spacing,omitempty"`
}

type physicalResponse struct {
	Spacing   float64               `json:"spacing"`
	Positions map[string]geom.Point `json:"positions"`
}

func (s *Server) handlePhysical(w http.ResponseWriter, r *http.Request) {
	var req physicalRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	spacing := req.Spacing
	if spacing == 0 {
		spacing = s.topoSpacing
	}
	if spacing < 0 {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "spacing must be positive, got %g", spacing))
		return
	}
	writeJSON(w, http.StatusOK, physicalResponse{
		Spacing:   spacing,
		Positions: topo.ToPhysical(req.Positions, spacing),
	})
}

// =============================================================================
// Helpers
// =============================================================================

// loadDesign returns the named design, restoring it from the store when it
// is not open.
func (s *Server) loadDesign(ctx context.Context, name string) (*design.Design, error) {
	d, err := s.registry.Get(name)
	if err == nil || s.store == nil || !errors.Is(err, errors.ErrCodeDesignNotFound) {
		return d, err
	}
	d, err = s.registry.Restore(ctx, s.store, name)
	if errors.Is(err, errors.ErrCodeDesignExists) {
		// Another request restored it first.
		return s.registry.Get(name)
	}
	return d, err
}

// mutate applies fn to the named design and persists the result. The open
// design changes only when the store accepted the new snapshot.
func (s *Server) mutate(ctx context.Context, name string, fn func(*design.Design) error) error {
	if _, err := s.loadDesign(ctx, name); err != nil {
		return err
	}
	if s.store != nil {
		return s.registry.UpdateAndPersist(ctx, s.store, name, fn)
	}
	return s.registry.Update(name, fn)
}

func (s *Server) respondDesign(w http.ResponseWriter, r *http.Request, name string, status int) {
	d, err := s.registry.Get(name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := newDesignResponse(d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, resp)
}

func parseMap(lit string) (*options.Map, error) {
	v, err := options.Parse(lit)
	if err != nil {
		return nil, err
	}
	m, ok := v.Map()
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "expected a mapping, got %s", v.Kind())
	}
	return m, nil
}

func recordFromJSON(raw json.RawMessage) (*options.Map, error) {
	if len(raw) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "record is required")
	}
	var lit string
	if err := json.Unmarshal(raw, &lit); err == nil {
		return parseMap(lit)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "record must be an option literal or a JSON object")
	}
	v, err := options.From(obj)
	if err != nil {
		return nil, err
	}
	m, ok := v.Map()
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "record must be a mapping")
	}
	return m, nil
}
