package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStatement = `<?xml version="1.0" encoding="UTF-8"?>
<Document>
  <BkToCstmrStmt>
    <Stmt>
      <Ntry>
        <Amt Ccy="USD">125.30</Amt>
        <CdtDbtInd>DBIT</CdtDbtInd>
        <BookgDt><Dt>2024-03-01</Dt></BookgDt>
        <NtryDtls>
          <TxDtls>
            <RmtInf><Ustrd>ACME SUPERMARKET 0042</Ustrd></RmtInf>
          </TxDtls>
        </NtryDtls>
      </Ntry>
      <Ntry>
        <Amt Ccy="USD">2500.00</Amt>
        <CdtDbtInd>CRDT</CdtDbtInd>
        <BookgDt><Dt>2024-03-02</Dt></BookgDt>
        <AddtlNtryInf>SALARY MARCH</AddtlNtryInf>
      </Ntry>
    </Stmt>
  </BkToCstmrStmt>
</Document>`

func TestParseStatement(t *testing.T) {
	entries, err := ParseStatement([]byte(sampleStatement))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	debit := entries[0]
	assert.Equal(t, -125.30, debit.Amount)
	assert.Equal(t, "2024-03-01", debit.Date)
	assert.Equal(t, "ACME SUPERMARKET 0042", debit.Description)

	credit := entries[1]
	assert.Equal(t, 2500.00, credit.Amount)
	assert.Equal(t, "2024-03-02", credit.Date)
	assert.Equal(t, "SALARY MARCH", credit.Description)
}

func TestParseStatementMissingAmount(t *testing.T) {
	const statement = `<Document><BkToCstmrStmt><Stmt><Ntry>
		<BookgDt><Dt>2024-03-01</Dt></BookgDt>
	</Ntry></Stmt></BkToCstmrStmt></Document>`

	entries, err := ParseStatement([]byte(statement))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	// A missing amount is left unresolved for the validator to reject.
	assert.Nil(t, entries[0].Amount)
}

func TestParseStatementMalformedXML(t *testing.T) {
	_, err := ParseStatement([]byte("<Document><unclosed"))
	assert.Error(t, err)
}

func TestParseStatementNoEntries(t *testing.T) {
	_, err := ParseStatement([]byte(`<Document><BkToCstmrStmt><Stmt></Stmt></BkToCstmrStmt></Document>`))
	assert.Error(t, err)
}
