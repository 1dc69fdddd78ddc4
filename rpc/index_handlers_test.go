package rpc

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexDisabled(t *testing.T) {
	env := newTestEnv(t, Config{}, false)
	reply := env.call(t, "index_recent", "", recentParam{Limit: 5})
	require.Equal(t, http.StatusServiceUnavailable, reply.Status)
	require.Equal(t, codeUnavailable, reply.Error.Code)
}

func TestIndexFollowsLedger(t *testing.T) {
	env := newTestEnv(t, Config{}, true)
	donorA, donorB, recipient, asset := newAccount(t), newAccount(t), newAccount(t), newAccount(t)

	require.Equal(t, http.StatusOK, env.donate(t, donorA, recipient, asset, "10").Status)
	require.Equal(t, http.StatusOK, env.donate(t, donorB, recipient, asset, "15").Status)
	require.Equal(t, http.StatusOK, env.donate(t, donorA, recipient, asset, "5").Status)

	reply := env.call(t, "index_recipientStats", "", addressParam{Address: recipient.String()})
	require.Equal(t, http.StatusOK, reply.Status, "%+v", reply.Error)
	var stats StatsView
	require.NoError(t, json.Unmarshal(reply.Result, &stats))
	require.Equal(t, int64(3), stats.Count)
	require.Equal(t, "30", stats.Total)
	require.Equal(t, int64(2), stats.Counterparties)

	reply = env.call(t, "index_donorStats", "", addressParam{Address: donorA.String()})
	require.NoError(t, json.Unmarshal(reply.Result, &stats))
	require.Equal(t, int64(2), stats.Count)
	require.Equal(t, "15", stats.Total)

	reply = env.call(t, "index_recent", "", recentParam{Limit: 2})
	var views []DonationView
	require.NoError(t, json.Unmarshal(reply.Result, &views))
	require.Len(t, views, 2)
	require.Equal(t, uint64(2), views[0].ID)

	reply = env.call(t, "index_recent", "", recentParam{Limit: 0})
	require.Equal(t, http.StatusBadRequest, reply.Status)
}
