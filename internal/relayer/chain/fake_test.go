package chain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFakeProviderGetLogsFiltersByBlockRangeAndFailsWideQueries(t *testing.T) {
	p := NewFakeProvider(1)
	p.FailGetLogsUntilRange = 5

	_, err := p.GetLogs(context.Background(), LogFilter{FromBlock: 0, ToBlock: 10})
	require.Error(t, err, "a range wider than FailGetLogsUntilRange should fail")

	logs, err := p.GetLogs(context.Background(), LogFilter{FromBlock: 0, ToBlock: 5})
	require.NoError(t, err)
	require.Empty(t, logs)
}

func TestFakeProviderSendRawRecordsTransactions(t *testing.T) {
	p := NewFakeProvider(1)

	tx, err := p.BuildTx(context.Background(), TxRequest{}, 0)
	require.NoError(t, err)
	require.NoError(t, p.SendRaw(context.Background(), tx))
	require.Len(t, p.SentTxs, 1)
}
