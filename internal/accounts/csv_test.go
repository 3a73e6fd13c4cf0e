package accounts

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/recibo/internal/model"
)

func TestRoundTrip(t *testing.T) {
	accounts := []model.Account{
		{Name: "Caja Estudio", LedgerID: 78043610},
		{Name: "Banco Provincia SH", LedgerID: 78043991},
	}

	var buf bytes.Buffer
	err := WriteAccounts(&buf, accounts)
	require.NoError(t, err)

	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, accounts[0], got[0])
	assert.Equal(t, accounts[1], got[1])
}

func TestReadAccounts_HeaderOnly(t *testing.T) {
	got, err := ReadAccounts(strings.NewReader("name,ledger_id\n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadAccounts_BadLedgerID(t *testing.T) {
	_, err := ReadAccounts(strings.NewReader("name,ledger_id\nCash,abc\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
	assert.Contains(t, err.Error(), "ledger_id")
}

func TestUnmarshalAccount_BadFieldCount(t *testing.T) {
	_, err := UnmarshalAccount([]string{"only"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 fields")
}

func TestMarshalAccount(t *testing.T) {
	row := MarshalAccount(model.Account{Name: "Banco ICBC", LedgerID: 236403092})
	assert.Equal(t, []string{"Banco ICBC", "236403092"}, row)
}
