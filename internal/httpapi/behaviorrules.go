package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fleetintel/core/internal/apierr"
	"github.com/fleetintel/core/internal/behaviorrule"
)

func (d *Dependencies) listBehaviorRules(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	rules, err := d.BehaviorRules.List(r.Context(), p.UserID, r.URL.Query().Get("taskType"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeCacheable(w, r, rules)
}

func (d *Dependencies) createBehaviorRule(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var rule behaviorrule.Rule
	if !decodeJSON(w, r, &rule) {
		return
	}
	rule.UserID = p.UserID
	created, err := d.BehaviorRules.Create(r.Context(), &rule)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteCreated(w, r, created)
}

// getBehaviorRule surfaces the rule's 90% credible interval alongside
// its point-estimate confidence — the posterior is only as trustworthy
// as its width, and a rule backed by one observation should read
// differently from one backed by a hundred even at the same mean.
func (d *Dependencies) getBehaviorRule(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	rule, err := d.BehaviorRules.Get(r.Context(), p.UserID, mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeCacheable(w, r, map[string]any{
		"rule":             rule,
		"confidence":       rule.Confidence(),
		"credibleInterval": rule.CredibleInterval(0.90),
	})
}

type observeBehaviorRuleRequest struct {
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
}

func (d *Dependencies) observeBehaviorRule(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var req observeBehaviorRuleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := d.BehaviorRules.Observe(r.Context(), p.UserID, mux.Vars(r)["id"], req.Successes, req.Failures)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, updated)
}

func (d *Dependencies) deleteBehaviorRule(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if err := d.BehaviorRules.Delete(r.Context(), p.UserID, mux.Vars(r)["id"]); err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"deleted": true})
}
