package store

import (
	"path/filepath"
	"testing"

	"github.com/cisco-sastre/sastre-engine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadIndexAndItem(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "backup")

	s, err := Open(root, false)
	require.NoError(t, err)
	defer s.Close()

	item := &types.Item{Kind: "policy_list.site", ID: "id-1", Name: "My Site List", Body: []byte(`{"listId":"id-1"}`)}
	require.NoError(t, s.WriteItem("policy_list.site", item))
	require.NoError(t, s.WriteIndex("policy_list.site", []types.IndexEntry{{ID: "id-1", Name: "My Site List"}}))

	entries, err := s.ReadIndex("policy_list.site")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "id-1", entries[0].ID)

	loaded, err := s.ReadItem("policy_list.site", "id-1", "My Site List")
	require.NoError(t, err)
	assert.JSONEq(t, `{"listId":"id-1"}`, string(loaded.Body))
}

func TestWriteItemNameCollisionFallsBackToID(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "backup"), false)
	require.NoError(t, err)
	defer s.Close()

	a := &types.Item{Kind: "policy_list.vpn", ID: "aaa", Name: "List/One", Body: []byte(`{"listId":"aaa"}`)}
	b := &types.Item{Kind: "policy_list.vpn", ID: "bbb", Name: "List:One", Body: []byte(`{"listId":"bbb"}`)}
	require.NoError(t, s.WriteItem("policy_list.vpn", a))
	require.NoError(t, s.WriteItem("policy_list.vpn", b))

	itemA, err := s.ReadItem("policy_list.vpn", "aaa", "List/One")
	require.NoError(t, err)
	assert.JSONEq(t, `{"listId":"aaa"}`, string(itemA.Body))

	itemB, err := s.ReadItem("policy_list.vpn", "bbb", "List:One")
	require.NoError(t, err)
	assert.JSONEq(t, `{"listId":"bbb"}`, string(itemB.Body))
}

func TestSecondOpenWithoutFreshFailsWhileLocked(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "backup")

	s1, err := Open(root, false)
	require.NoError(t, err)
	defer s1.Close()

	_, err = Open(root, false)
	require.Error(t, err)
	var sastreErr *types.Error
	require.ErrorAs(t, err, &sastreErr)
	assert.Equal(t, types.ErrConflict, sastreErr.Kind)
}

func TestFreshOpenRotatesExistingBackup(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "backup")

	s1, err := Open(root, false)
	require.NoError(t, err)
	require.NoError(t, s1.WriteServerInfo(ServerInfo{Address: "10.0.0.1", Version: "20.9"}))
	require.NoError(t, s1.Close())

	s2, err := Open(root, true)
	require.NoError(t, err)
	defer s2.Close()

	_, err = s2.ReadServerInfo()
	require.Error(t, err, "a fresh backup root should not carry over the prior server_info.json")

	rotated, err := Open(root+"_1", false)
	require.NoError(t, err)
	defer rotated.Close()
	info, err := rotated.ReadServerInfo()
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", info.Address)
}

func TestAttachmentsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "backup"), false)
	require.NoError(t, err)
	defer s.Close()

	attachments := []types.Attachment{{DeviceTemplateID: "tpl-1", DeviceID: "dev-1", DeviceName: "edge-01"}}
	require.NoError(t, s.WriteAttachment("tpl-1", attachments))

	got, err := s.ReadAttachments("tpl-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "edge-01", got[0].DeviceName)
}

func TestKindsListsOnlyItemDirectories(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "backup"), false)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WriteItem("policy_list.site", &types.Item{ID: "1", Name: "a", Body: []byte("{}")}))
	require.NoError(t, s.WriteCertificates([]byte(`[]`)))
	require.NoError(t, s.WriteDeviceConfig("edge-01", []byte("hostname edge-01")))

	kinds, err := s.Kinds()
	require.NoError(t, err)
	assert.Contains(t, kinds, "policy_list.site")
	assert.NotContains(t, kinds, certsDir)
	assert.NotContains(t, kinds, deviceConfigsDir)
}

func TestPackAndUnpackZipRoundTrip(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "backup")
	s, err := Open(root, false)
	require.NoError(t, err)
	require.NoError(t, s.WriteItem("policy_list.site", &types.Item{ID: "1", Name: "a", Body: []byte(`{"a":1}`)}))
	require.NoError(t, s.Close())

	archive := filepath.Join(dir, "backup.zip")
	require.NoError(t, PackZip(root, archive))

	restoredDir := filepath.Join(dir, "restored")
	require.NoError(t, UnpackZip(archive, restoredDir))

	s2, err := Open(restoredDir, false)
	require.NoError(t, err)
	defer s2.Close()
	item, err := s2.ReadItem("policy_list.site", "1", "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(item.Body))
}
