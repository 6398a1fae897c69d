package task

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cisco-sastre/sastre-engine/pkg/catalog"
	"github.com/cisco-sastre/sastre-engine/pkg/store"
	"github.com/cisco-sastre/sastre-engine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is an in-memory stand-in for *restclient.Client, driven by
// a small routing table keyed on exact path, so orchestrator tests
// exercise real dependency ordering and planning logic without network
// I/O.
type fakeClient struct {
	lists      map[string]json.RawMessage // path -> list response
	deleteErrs map[string]error           // path -> error Delete should return
	created    []string                   // paths POSTed to, in call order
	updated    []string
	deleted    []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{lists: make(map[string]json.RawMessage)}
}

func (f *fakeClient) GetJSON(ctx context.Context, path string) (json.RawMessage, error) {
	if v, ok := f.lists[path]; ok {
		return v, nil
	}
	return json.RawMessage(`[]`), nil
}

func (f *fakeClient) PostJSON(ctx context.Context, path string, body json.RawMessage) (json.RawMessage, error) {
	f.created = append(f.created, path)
	return json.RawMessage(`{}`), nil
}

func (f *fakeClient) PutJSON(ctx context.Context, path string, body json.RawMessage) (json.RawMessage, error) {
	f.updated = append(f.updated, path)
	return json.RawMessage(`{}`), nil
}

func (f *fakeClient) Delete(ctx context.Context, path string) error {
	f.deleted = append(f.deleted, path)
	if f.deleteErrs != nil {
		if err, ok := f.deleteErrs[path]; ok {
			return err
		}
	}
	return nil
}

func newItem(kind, id, name, body string) *types.Item {
	return &types.Item{Kind: kind, ID: id, Name: name, Body: json.RawMessage(body)}
}

func oneEntryIndex(id, name string) []types.IndexEntry {
	return []types.IndexEntry{{ID: id, Name: name}}
}

func TestBackupWritesItemsAndIndex(t *testing.T) {
	cat := catalog.New()
	o := New(cat)

	fc := newFakeClient()
	fc.lists["/template/policy/list/site"] = json.RawMessage(`[
		{"listId":"s1","name":"Site One","factoryDefault":false},
		{"listId":"s2","name":"Site Two","factoryDefault":false}
	]`)
	fc.lists["/template/policy/list/site/s1"] = json.RawMessage(`{"listId":"s1","name":"Site One","factoryDefault":false}`)
	fc.lists["/template/policy/list/site/s2"] = json.RawMessage(`{"listId":"s2","name":"Site Two","factoryDefault":false}`)

	dest := store.NewMemoryStore()
	result, err := o.Backup(context.Background(), fc, dest, BackupOptions{Kinds: []string{"policy_list.site"}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.ItemsByKind["policy_list.site"])

	entries, err := dest.ReadIndex("policy_list.site")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	item, err := dest.ReadItem("policy_list.site", "s1", "Site One")
	require.NoError(t, err)
	assert.Contains(t, string(item.Body), "Site One")
}

func TestBackupAppliesNameFilterAsOmitted(t *testing.T) {
	cat := catalog.New()
	o := New(cat)

	fc := newFakeClient()
	fc.lists["/template/policy/list/site"] = json.RawMessage(`[
		{"listId":"s1","name":"Keep"},
		{"listId":"s2","name":"Drop"}
	]`)
	fc.lists["/template/policy/list/site/s1"] = json.RawMessage(`{"listId":"s1","name":"Keep"}`)

	dest := store.NewMemoryStore()
	filter := func(name string) bool { return name == "Keep" }
	result, err := o.Backup(context.Background(), fc, dest, BackupOptions{Kinds: []string{"policy_list.site"}, NameFilter: filter})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsByKind["policy_list.site"])

	entries, err := dest.ReadIndex("policy_list.site")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	var omittedCount int
	for _, e := range entries {
		if e.Omitted {
			omittedCount++
		}
	}
	assert.Equal(t, 1, omittedCount)
}

func TestRestorePushesInDependencyOrderAndRewritesReferences(t *testing.T) {
	cat := catalog.New()
	o := New(cat)

	src := store.NewMemoryStore()
	require.NoError(t, src.WriteItem("policy_list.site", newItem(
		"policy_list.site", "site-old", "Site A", `{"listId":"site-old","name":"Site A"}`,
	)))
	require.NoError(t, src.WriteIndex("policy_list.site", oneEntryIndex("site-old", "Site A")))

	require.NoError(t, src.WriteItem("policy_definition.vedge", newItem(
		"policy_definition.vedge", "def-old", "Def A",
		`{"definitionId":"def-old","name":"Def A","definition":{"sequences":[{"match":{"entries":[{"siteLists":["site-old"]}]}}]}}`,
	)))
	require.NoError(t, src.WriteIndex("policy_definition.vedge", oneEntryIndex("def-old", "Def A")))

	fc := newFakeClient()
	live := EmptyLiveIndex()

	result, err := o.Restore(context.Background(), fc, live, src, RestoreOptions{
		Kinds: []string{"policy_list.site", "policy_definition.vedge"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Plan.Steps, 2)
	assert.Equal(t, StepCreate, result.Plan.Steps[0].Verb)

	require.Len(t, fc.created, 2)
	assert.Contains(t, fc.created[0], "/template/policy/list/site")
	assert.Contains(t, fc.created[1], "/template/policy/definition/vedge")
}

func TestRestoreSkipsFactoryDefaultAlreadyPresent(t *testing.T) {
	cat := catalog.New()
	o := New(cat)

	src := store.NewMemoryStore()
	it := newItem("policy_list.site", "s1", "Default_Site", `{"listId":"s1","name":"Default_Site","factoryDefault":true}`)
	it.FactoryDefault = true
	require.NoError(t, src.WriteItem("policy_list.site", it))

	entries := oneEntryIndex("s1", "Default_Site")
	entries[0].FactoryDefault = true
	require.NoError(t, src.WriteIndex("policy_list.site", entries))

	fc := newFakeClient()
	live := staticLiveIndex{"policy_list.site": {"Default_Site": "live-s1"}}

	result, err := o.Restore(context.Background(), fc, live, src, RestoreOptions{Kinds: []string{"policy_list.site"}})
	require.NoError(t, err)
	require.Len(t, result.Plan.Steps, 1)
	assert.Equal(t, StepSkip, result.Plan.Steps[0].Verb)
	assert.Empty(t, fc.created)
	assert.Equal(t, "live-s1", result.Mapping["policy_list.site/s1"])
}

// bodiedLiveIndex pairs a staticLiveIndex's name->id lookup with canned
// live bodies, so update-mode tests can exercise the canonical-compare
// path without a real controller GET.
type bodiedLiveIndex struct {
	staticLiveIndex
	bodies map[string]map[string]json.RawMessage // kind -> id -> body
}

func (b bodiedLiveIndex) body(kind, id string) (json.RawMessage, bool) {
	v, ok := b.bodies[kind][id]
	return v, ok
}

func TestRestoreSkipsUpdateWhenNotRequested(t *testing.T) {
	cat := catalog.New()
	o := New(cat)

	src := store.NewMemoryStore()
	require.NoError(t, src.WriteItem("policy_list.site", newItem(
		"policy_list.site", "s1", "Site A", `{"listId":"s1","name":"Site A","extra":"changed"}`,
	)))
	require.NoError(t, src.WriteIndex("policy_list.site", oneEntryIndex("s1", "Site A")))

	fc := newFakeClient()
	live := staticLiveIndex{"policy_list.site": {"Site A": "live-s1"}}

	result, err := o.Restore(context.Background(), fc, live, src, RestoreOptions{Kinds: []string{"policy_list.site"}})
	require.NoError(t, err)
	require.Len(t, result.Plan.Steps, 1)
	assert.Equal(t, StepSkip, result.Plan.Steps[0].Verb)
	assert.Empty(t, fc.updated)
	assert.Equal(t, "live-s1", result.Mapping["policy_list.site/s1"])
}

func TestRestoreUpdateModeSkipsWhenCanonicallyUnchanged(t *testing.T) {
	cat := catalog.New()
	o := New(cat)

	src := store.NewMemoryStore()
	require.NoError(t, src.WriteItem("policy_list.site", newItem(
		"policy_list.site", "s1", "Site A", `{"listId":"s1","name":"Site A"}`,
	)))
	require.NoError(t, src.WriteIndex("policy_list.site", oneEntryIndex("s1", "Site A")))

	fc := newFakeClient()
	live := bodiedLiveIndex{
		staticLiveIndex: staticLiveIndex{"policy_list.site": {"Site A": "live-s1"}},
		bodies: map[string]map[string]json.RawMessage{
			"policy_list.site": {"live-s1": json.RawMessage(`{"name":"Site A","listId":"site-old"}`)},
		},
	}

	result, err := o.Restore(context.Background(), fc, live, src, RestoreOptions{
		Kinds: []string{"policy_list.site"}, Update: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Plan.Steps, 1)
	assert.Equal(t, StepSkip, result.Plan.Steps[0].Verb)
	assert.Empty(t, fc.updated)
}

func TestRestoreUpdateModePutsWhenBodyDiffers(t *testing.T) {
	cat := catalog.New()
	o := New(cat)

	src := store.NewMemoryStore()
	require.NoError(t, src.WriteItem("policy_list.site", newItem(
		"policy_list.site", "s1", "Site A", `{"listId":"s1","name":"Site A","extra":"new-value"}`,
	)))
	require.NoError(t, src.WriteIndex("policy_list.site", oneEntryIndex("s1", "Site A")))

	fc := newFakeClient()
	live := bodiedLiveIndex{
		staticLiveIndex: staticLiveIndex{"policy_list.site": {"Site A": "live-s1"}},
		bodies: map[string]map[string]json.RawMessage{
			"policy_list.site": {"live-s1": json.RawMessage(`{"name":"Site A","listId":"site-old","extra":"old-value"}`)},
		},
	}

	result, err := o.Restore(context.Background(), fc, live, src, RestoreOptions{
		Kinds: []string{"policy_list.site"}, Update: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Plan.Steps, 1)
	assert.Equal(t, StepUpdate, result.Plan.Steps[0].Verb)
	require.Len(t, fc.updated, 1)
	assert.Contains(t, fc.updated[0], "live-s1")
}

func TestDeleteWalksReverseDependencyOrder(t *testing.T) {
	cat := catalog.New()
	o := New(cat)

	src := store.NewMemoryStore()
	require.NoError(t, src.WriteIndex("policy_list.site", oneEntryIndex("s1", "Site A")))
	require.NoError(t, src.WriteIndex("policy_definition.vedge", oneEntryIndex("d1", "Def A")))

	fc := newFakeClient()
	plan, err := o.Delete(context.Background(), fc, src, DeleteOptions{Kinds: []string{"policy_list.site", "policy_definition.vedge"}})
	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)
	assert.Equal(t, "policy_definition.vedge", plan.Steps[0].Kind, "dependent kind must be deleted before its dependency")
	assert.Equal(t, "policy_list.site", plan.Steps[1].Kind)
	require.Len(t, fc.deleted, 2)
}

func TestDeleteDryRunIssuesNoRequests(t *testing.T) {
	cat := catalog.New()
	o := New(cat)

	src := store.NewMemoryStore()
	require.NoError(t, src.WriteIndex("policy_list.site", oneEntryIndex("s1", "Site A")))

	fc := newFakeClient()
	plan, err := o.Delete(context.Background(), fc, src, DeleteOptions{Kinds: []string{"policy_list.site"}, DryRun: true})
	require.NoError(t, err)
	assert.Len(t, plan.Steps, 1)
	assert.Empty(t, fc.deleted)
}

func TestDeleteContinuesPastConflictInsteadOfAborting(t *testing.T) {
	cat := catalog.New()
	o := New(cat)

	src := store.NewMemoryStore()
	require.NoError(t, src.WriteIndex("policy_list.site", []types.IndexEntry{
		{ID: "s1", Name: "Site A"},
		{ID: "s2", Name: "Site B"},
	}))

	fc := newFakeClient()
	fc.deleteErrs = map[string]error{
		"/template/policy/list/site/s1": types.NewError(types.ErrConflict, "still referenced"),
	}

	plan, err := o.Delete(context.Background(), fc, src, DeleteOptions{Kinds: []string{"policy_list.site"}})
	require.NoError(t, err, "a 409 conflict on one item must not abort the whole delete run")
	require.Len(t, plan.Steps, 2)
	require.Len(t, fc.deleted, 2, "the second item must still be attempted after the first conflicts")
}

// Exercising ReattachUpdatedTemplates end to end would require a live
// *restclient.Client (its signature takes the concrete type, not the
// package-local client interface, since it drives a real *action.Engine
// submitter); these tests instead cover the transitive-dependency walk
// directly, the part this change actually adds.

func TestTemplateNeedsReattachFollowsTransitiveDependency(t *testing.T) {
	cat := catalog.New()
	o := New(cat)

	src := store.NewMemoryStore()
	require.NoError(t, src.WriteItem("template_device", newItem(
		"template_device", "dev1", "Branch Router",
		`{"templateId":"dev1","templateName":"Branch Router","generalTemplates":[{"templateId":"feat1"}]}`,
	)))
	require.NoError(t, src.WriteIndex("template_device", oneEntryIndex("dev1", "Branch Router")))
	require.NoError(t, src.WriteIndex("template_feature", oneEntryIndex("feat1", "VPN Feature")))

	updated := map[catalogKey]bool{{kind: "template_feature", id: "feat1"}: true}
	step := PlanStep{Verb: StepSkip, Kind: "template_device", ID: "dev1", Name: "Branch Router"}

	assert.True(t, o.templateNeedsReattach(src, updated, step),
		"a device template referencing an updated feature template must be flagged for reattach")
}

func TestTemplateNeedsReattachFalseWithNoUpdatedDependency(t *testing.T) {
	cat := catalog.New()
	o := New(cat)

	src := store.NewMemoryStore()
	require.NoError(t, src.WriteItem("template_device", newItem(
		"template_device", "dev1", "Branch Router",
		`{"templateId":"dev1","templateName":"Branch Router","generalTemplates":[{"templateId":"feat1"}]}`,
	)))
	require.NoError(t, src.WriteIndex("template_device", oneEntryIndex("dev1", "Branch Router")))
	require.NoError(t, src.WriteIndex("template_feature", oneEntryIndex("feat1", "VPN Feature")))

	step := PlanStep{Verb: StepSkip, Kind: "template_device", ID: "dev1", Name: "Branch Router"}

	assert.False(t, o.templateNeedsReattach(src, map[catalogKey]bool{}, step))
}

func TestTemplateNeedsReattachTrueWhenDirectlyUpdated(t *testing.T) {
	cat := catalog.New()
	o := New(cat)

	src := store.NewMemoryStore()
	step := PlanStep{Verb: StepUpdate, Kind: "template_device", ID: "dev1", Name: "Branch Router"}

	assert.True(t, o.templateNeedsReattach(src, map[catalogKey]bool{}, step))
}

var templateKinds = map[string]bool{"template_device": true}

func TestTransformRenamesAndPreservesReferences(t *testing.T) {
	cat := catalog.New()
	o := New(cat)

	src := store.NewMemoryStore()
	it := newItem("policy_list.site", "s1", "Site A", `{"listId":"s1","name":"Site A"}`)
	require.NoError(t, src.WriteItem("policy_list.site", it))
	require.NoError(t, src.WriteIndex("policy_list.site", oneEntryIndex("s1", "Site A")))

	dst := store.NewMemoryStore()
	rename := func(name string) string { return "mig-" + name }
	result, err := o.Transform(src, dst, TransformOptions{Kinds: []string{"policy_list.site"}, Rename: rename})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsByKind["policy_list.site"])

	entries, err := dst.ReadIndex("policy_list.site")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "mig-Site A", entries[0].Name)
}

func TestTransformCopyKeepsOriginalAlongsideCopy(t *testing.T) {
	cat := catalog.New()
	o := New(cat)

	src := store.NewMemoryStore()
	it := newItem("template_feature", "ft1", "Logging_Template_cEdge", `{"templateId":"ft1","templateName":"Logging_Template_cEdge"}`)
	require.NoError(t, src.WriteItem("template_feature", it))
	require.NoError(t, src.WriteIndex("template_feature", oneEntryIndex("ft1", "Logging_Template_cEdge")))

	dst := store.NewMemoryStore()
	rename := func(name string) string { return name + "_v01" }
	result, err := o.Transform(src, dst, TransformOptions{Kinds: []string{"template_feature"}, Rename: rename, Copy: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.ItemsByKind["template_feature"])

	entries, err := dst.ReadIndex("template_feature")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.ElementsMatch(t, []string{"Logging_Template_cEdge", "Logging_Template_cEdge_v01"}, names)

	original, err := src.ReadItem("template_feature", "ft1", "Logging_Template_cEdge")
	require.NoError(t, err)
	kept, err := dst.ReadItem("template_feature", original.ID, "Logging_Template_cEdge")
	require.NoError(t, err)
	assert.Equal(t, "ft1", kept.ID)
}

func TestTransformCopyWithRedirectRepointsReferences(t *testing.T) {
	cat := catalog.New()
	o := New(cat)

	src := store.NewMemoryStore()
	feature := newItem("template_feature", "ft1", "Logging_Template_cEdge", `{"templateId":"ft1","templateName":"Logging_Template_cEdge"}`)
	require.NoError(t, src.WriteItem("template_feature", feature))
	require.NoError(t, src.WriteIndex("template_feature", oneEntryIndex("ft1", "Logging_Template_cEdge")))

	device := newItem("template_device", "dt1", "DT1", `{"templateId":"dt1","templateName":"DT1","generalTemplates":[{"templateId":"ft1"}]}`)
	require.NoError(t, src.WriteItem("template_device", device))
	require.NoError(t, src.WriteIndex("template_device", oneEntryIndex("dt1", "DT1")))

	dst := store.NewMemoryStore()
	rename := func(name string) string {
		if name == "Logging_Template_cEdge" {
			return "Logging_Template_v01"
		}
		return name
	}
	_, err := o.Transform(src, dst, TransformOptions{
		Kinds:    []string{"template_feature", "template_device"},
		Rename:   rename,
		Copy:     true,
		Redirect: true,
	})
	require.NoError(t, err)

	entries, err := dst.ReadIndex("template_feature")
	require.NoError(t, err)
	var copyID string
	for _, e := range entries {
		if e.Name == "Logging_Template_v01" {
			copyID = e.ID
		}
	}
	require.NotEmpty(t, copyID)
	require.NotEqual(t, "ft1", copyID)

	rewrittenDevice, err := dst.ReadItem("template_device", "dt1", "DT1")
	require.NoError(t, err)
	assert.Contains(t, string(rewrittenDevice.Body), copyID)
	assert.NotContains(t, string(rewrittenDevice.Body), `"templateId":"ft1"`)
}
