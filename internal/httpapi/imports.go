package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fleetintel/core/internal/apierr"
	"github.com/fleetintel/core/internal/catalog"
	"github.com/fleetintel/core/internal/mutation"
	"github.com/fleetintel/core/internal/translator"
)

type parseImportRequest struct {
	FileName      string            `json:"fileName"`
	Format        translator.Format `json:"format"`
	ContentBase64 string            `json:"contentBase64"`
}

// handleImportParse runs the parse stage of the translator pipeline
// (§4.3) over an uploaded vendor export. Only csv decodes
// directly; a json-format payload skips parse entirely and goes
// straight to /api/import/translate with its raw body as the payload.
func (d *Dependencies) handleImportParse(w http.ResponseWriter, r *http.Request) {
	var req parseImportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	parsed, err := translator.Parse(req.FileName, req.Format, req.ContentBase64)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, parsed)
}

type translateImportRequest struct {
	Config  translator.Config          `json:"config"`
	Parsed  *translator.ParsedImportData `json:"parsed,omitempty"`
	Payload map[string]any             `json:"payload,omitempty"`
}

// rowsFromParsed zips a csv ParsedImportData's headers and rows into a
// payload keyed "rows" — the convention this deployment's csv-sourced
// translator.Config definitions use for sourcePath ("rows" or a nested
// path under it), since translator.Translate walks a generic
// map[string]any rather than ParsedImportData directly.
func rowsFromParsed(parsed *translator.ParsedImportData) map[string]any {
	rows := make([]map[string]any, len(parsed.Rows))
	for i, row := range parsed.Rows {
		obj := make(map[string]any, len(parsed.Headers))
		for j, header := range parsed.Headers {
			if j < len(row) {
				obj[header] = row[j]
			}
		}
		rows[i] = obj
	}
	return map[string]any{"rows": rows}
}

func (d *Dependencies) handleImportTranslate(w http.ResponseWriter, r *http.Request) {
	body, ok := readAllBody(w, r)
	if !ok {
		return
	}

	var envelope struct {
		Config json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		apierr.WriteErrorCode(w, r, apierr.InvalidParam, "request body is not valid JSON: "+err.Error(), nil)
		return
	}
	if err := validateConfigJSON(envelope.Config); err != nil {
		apierr.WriteErrorCode(w, r, apierr.InvalidParam, err.Error(), nil)
		return
	}

	var req translateImportRequest
	if err := json.Unmarshal(body, &req); err != nil {
		apierr.WriteErrorCode(w, r, apierr.InvalidParam, "request body is not valid JSON: "+err.Error(), nil)
		return
	}
	payload := req.Payload
	if req.Parsed != nil {
		payload = rowsFromParsed(req.Parsed)
	}
	if payload == nil {
		payload = map[string]any{}
	}

	result, err := translator.Translate(&req.Config, payload)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, result)
}

type resolveImportRequest struct {
	Mapped *translator.MappedImport `json:"mapped"`
}

func (d *Dependencies) handleImportResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveImportRequest
	if !decodeJSON(w, r, &req) || req.Mapped == nil {
		apierr.WriteErrorCode(w, r, apierr.MissingParam, "mapped is required", nil)
		return
	}
	resolved, err := translator.Resolve(r.Context(), req.Mapped, d.Officers, d.Ships)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, resolved)
}

type applyImportRequest struct {
	Resolved   *translator.ResolvedImport `json:"resolved"`
	SourceType string                     `json:"sourceType"`
	SourceMeta json.RawMessage            `json:"sourceMeta,omitempty"`
	Mapping    json.RawMessage            `json:"mapping,omitempty"`
}

func (d *Dependencies) handleImportApply(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var req applyImportRequest
	if !decodeJSON(w, r, &req) || req.Resolved == nil || req.SourceType == "" {
		apierr.WriteErrorCode(w, r, apierr.MissingParam, "resolved and sourceType are required", nil)
		return
	}

	result, err := translator.Apply(r.Context(), d.Pools, p.UserID, req.Resolved,
		d.OfficerOverlays, d.ShipOverlays, d.Receipts, req.SourceType, req.SourceMeta, req.Mapping)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, result)
}

func (d *Dependencies) listReceipts(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	layer := r.URL.Query().Get("layer")
	receipts, err := d.Receipts.List(r.Context(), p.UserID, layer, 50)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeCacheable(w, r, receipts)
}

func (d *Dependencies) getReceipt(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	receipt, err := d.Receipts.Get(r.Context(), p.UserID, mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeCacheable(w, r, receipt)
}

// officerOverlayPatchValues converts a raw pre-patch snapshot (nil on
// first touch) into the camelCase value map catalog.NewPatchFromValues
// expects. The snapshot struct itself has no json tags — it is only
// ever marshaled into a receipt's inverse for byte-identical storage,
// never decoded back as a patch — so undo must name every field
// explicitly rather than round-tripping it through encoding/json.
func officerOverlayPatchValues(o *catalog.OfficerOverlay) map[string]any {
	if o == nil {
		return map[string]any{
			"ownershipState": "unknown", "target": false,
			"userLevel": nil, "userRank": nil, "userPower": nil,
			"targetNote": nil, "targetPriority": nil,
		}
	}
	return map[string]any{
		"ownershipState": o.OwnershipState, "target": o.Target,
		"userLevel": o.UserLevel, "userRank": o.UserRank, "userPower": o.UserPower,
		"targetNote": o.TargetNote, "targetPriority": o.TargetPriority,
	}
}

func shipOverlayPatchValues(o *catalog.ShipOverlay) map[string]any {
	if o == nil {
		return map[string]any{
			"ownershipState": "unknown", "target": false,
			"userLevel": nil, "userTier": nil, "targetNote": nil, "targetPriority": nil,
		}
	}
	return map[string]any{
		"ownershipState": o.OwnershipState, "target": o.Target,
		"userLevel": o.UserLevel, "userTier": o.UserTier,
		"targetNote": o.TargetNote, "targetPriority": o.TargetPriority,
	}
}

// undoReceipt replays an ownership-layer receipt's inverse as overlay
// patches, one per refId, restoring exactly the pre-import snapshot
// (internal/translator/apply.go: changeset/inverse are each keyed
// "officers"/"ships" so undo never has to guess which catalog an refId
// belongs to).
func (d *Dependencies) undoReceipt(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	receipt, err := d.Receipts.Get(r.Context(), p.UserID, mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if receipt.Layer != mutation.LayerOwnership {
		apierr.WriteErrorCode(w, r, apierr.InvalidParam, "undo is only supported for ownership-layer receipts", nil)
		return
	}

	var inverse struct {
		Officers map[string]*catalog.OfficerOverlay `json:"officers"`
		Ships    map[string]*catalog.ShipOverlay    `json:"ships"`
	}
	if err := json.Unmarshal(receipt.Inverse, &inverse); err != nil {
		apierr.WriteInternal(w, r, err)
		return
	}

	for refID, snap := range inverse.Officers {
		patch, err := catalog.NewPatchFromValues(officerOverlayPatchValues(snap))
		if err != nil {
			apierr.WriteInternal(w, r, err)
			return
		}
		if err := d.OfficerOverlays.SetOverlay(r.Context(), p.UserID, refID, patch); err != nil {
			writeErr(w, r, err)
			return
		}
	}
	for refID, snap := range inverse.Ships {
		patch, err := catalog.NewPatchFromValues(shipOverlayPatchValues(snap))
		if err != nil {
			apierr.WriteInternal(w, r, err)
			return
		}
		if err := d.ShipOverlays.SetOverlay(r.Context(), p.UserID, refID, patch); err != nil {
			writeErr(w, r, err)
			return
		}
	}

	apierr.WriteOK(w, r, map[string]any{"undone": true})
}

type resolveReceiptRequest struct {
	Decisions []mutation.ItemDecision `json:"decisions"`
}

func (d *Dependencies) resolveReceipt(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var req resolveReceiptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := d.Receipts.ResolveReceiptItems(r.Context(), p.UserID, mux.Vars(r)["id"], req.Decisions); err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"resolved": true})
}
