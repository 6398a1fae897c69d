package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandTags(t *testing.T) {
	c := New()

	tests := []struct {
		name    string
		tags    []string
		wantAny string // a kind expected to be in the result
		wantErr bool
	}{
		{name: "policy_list family", tags: []string{"policy_list"}, wantAny: "policy_list.site"},
		{name: "policy_definition family", tags: []string{"policy_definition"}, wantAny: "policy_definition.vedge"},
		{name: "single kind as tag", tags: []string{"template_device"}, wantAny: "template_device"},
		{name: "all expands to everything", tags: []string{"all"}, wantAny: "config_group"},
		{name: "unknown tag rejected", tags: []string{"not_a_real_tag"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kinds, err := c.ExpandTags(tt.tags)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, kinds, tt.wantAny)
		})
	}
}

func TestExpandTagsMonotone(t *testing.T) {
	c := New()

	t1, err := c.ExpandTags([]string{"policy_list"})
	require.NoError(t, err)
	t2, err := c.ExpandTags([]string{"policy_list", "template_device"})
	require.NoError(t, err)

	for _, k := range t1 {
		assert.Contains(t, t2, k)
	}
}

func TestFilterByVersionDropsNewerKinds(t *testing.T) {
	c := New().FilterByVersion("19.2")

	_, ok := c.Get("config_group")
	assert.False(t, ok, "config_group requires 20.1+, should be absent on 19.2")

	_, ok = c.Get("policy_list.site")
	assert.True(t, ok, "kinds with no MinVersion should always be present")
}

func TestExtractAndRewriteReferences(t *testing.T) {
	c := New()

	body := []byte(`{
		"definitionId": "def-1",
		"name": "vedge-def",
		"definition": {
			"sequences": [
				{"match": {"entries": [{"siteLists": ["site-100", "site-200"]}]}}
			]
		}
	}`)

	refs, err := c.ExtractReferences("policy_definition.vedge", body)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "policy_list.site", refs[0].Kind)
	assert.ElementsMatch(t, []string{"site-100", "site-200"}, []string{refs[0].ID, refs[1].ID})

	mapping := map[string]string{"site-100": "new-100", "site-200": "new-200"}
	rewritten, err := c.Rewrite("policy_definition.vedge", body, func(kind, id string) (string, bool) {
		if kind != "policy_list.site" {
			return id, false
		}
		v, ok := mapping[id]
		return v, ok
	})
	require.NoError(t, err)

	refs2, err := c.ExtractReferences("policy_definition.vedge", rewritten)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"new-100", "new-200"}, []string{refs2[0].ID, refs2[1].ID})
}

func TestExtractIdentityFactoryDefault(t *testing.T) {
	c := New()
	body := []byte(`{"listId": "id-1", "name": "Default_List", "factoryDefault": true}`)

	id, name, fd, err := c.ExtractIdentity("policy_list.site", body)
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)
	assert.Equal(t, "Default_List", name)
	assert.True(t, fd)
}
