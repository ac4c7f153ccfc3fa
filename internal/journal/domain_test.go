package journal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arthaledger/arthaledger/internal/accounts"
)

func TestTypePrefixes(t *testing.T) {
	cases := map[Type]string{
		TypeLoanDisbursement:  "LDB",
		TypeLoanRepayment:     "LRP",
		TypeSavingsDeposit:    "SDP",
		TypeSavingsWithdrawal: "SWD",
		TypeDepreciation:      "DPR",
		TypeAdjustment:        "ADJ",
		TypeGeneral:           "GEN",
	}
	for typ, want := range cases {
		prefix, err := typ.Prefix()
		require.NoError(t, err)
		require.Equal(t, want, prefix)
	}

	_, err := Type("BOGUS").Prefix()
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestFormatNumberPadsSequence(t *testing.T) {
	require.Equal(t, "DPR-000001", FormatNumber("DPR", 1))
	require.Equal(t, "GEN-012345", FormatNumber("GEN", 12345))
	require.Equal(t, "ADJ-1000000", FormatNumber("ADJ", 1000000))
}

func TestCreateInputValidate(t *testing.T) {
	valid := CreateInput{
		Description: "dues received",
		Type:        TypeGeneral,
		CreatedBy:   "teller",
		Lines: []LineInput{
			{AccountCode: "1010", Side: accounts.SideDebit, Amount: 200},
			{AccountCode: "4010", Side: accounts.SideCredit, Amount: 200},
		},
	}
	require.NoError(t, valid.Validate())

	noLines := valid
	noLines.Lines = nil
	require.ErrorIs(t, noLines.Validate(), ErrEmptyEntry)

	badType := valid
	badType.Type = "PETTY_CASH"
	require.ErrorIs(t, badType.Validate(), ErrUnknownType)

	unbalanced := valid
	unbalanced.Lines = []LineInput{
		{AccountCode: "1010", Side: accounts.SideDebit, Amount: 200},
		{AccountCode: "4010", Side: accounts.SideCredit, Amount: 199.50},
	}
	require.ErrorIs(t, unbalanced.Validate(), ErrUnbalanced)

	negative := valid
	negative.Lines = []LineInput{
		{AccountCode: "1010", Side: accounts.SideDebit, Amount: -10},
		{AccountCode: "4010", Side: accounts.SideCredit, Amount: -10},
	}
	require.Error(t, negative.Validate())

	badSide := valid
	badSide.Lines = []LineInput{
		{AccountCode: "1010", Side: "BOTH", Amount: 10},
		{AccountCode: "4010", Side: accounts.SideCredit, Amount: 10},
	}
	require.Error(t, badSide.Validate())

	noActor := valid
	noActor.CreatedBy = " "
	require.Error(t, noActor.Validate())
}

func TestEntryIsBalanced(t *testing.T) {
	require.True(t, Entry{TotalDebit: 100, TotalCredit: 100.009}.IsBalanced())
	require.False(t, Entry{TotalDebit: 100, TotalCredit: 100.01}.IsBalanced())
}
