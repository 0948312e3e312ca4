// Package importer parses uploaded CAMT.053-style XML bank statements into
// candidate transactions. Parsing is deliberately permissive: each entry
// becomes a loosely-typed input for the gateway, which owns all rejection
// decisions.
package importer

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/finwell/finance-gateway/internal/models"
	"github.com/shopspring/decimal"
)

// ParseStatement extracts the booked entries from an XML statement. It
// fails only when the document itself is malformed or holds no entries;
// per-entry problems (bad amounts, missing dates) surface later as
// validation violations.
func ParseStatement(data []byte) ([]*models.TransactionInput, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse statement XML: %w", err)
	}

	entries := doc.FindElements("//Stmt/Ntry")
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries found in statement")
	}

	inputs := make([]*models.TransactionInput, 0, len(entries))
	for _, entry := range entries {
		inputs = append(inputs, parseEntry(entry))
	}
	return inputs, nil
}

func parseEntry(entry *etree.Element) *models.TransactionInput {
	in := &models.TransactionInput{}

	if amt := entry.FindElement("./Amt"); amt != nil {
		// Statement amounts are unsigned decimals; the credit/debit
		// indicator carries the direction.
		if d, err := decimal.NewFromString(amt.Text()); err == nil {
			value := d.InexactFloat64()
			if ind := entry.FindElement("./CdtDbtInd"); ind != nil && ind.Text() == "DBIT" {
				value = -value
			}
			in.Amount = value
		}
	}

	if date := entry.FindElement("./BookgDt/Dt"); date != nil {
		in.Date = date.Text()
	} else if date := entry.FindElement("./ValDt/Dt"); date != nil {
		in.Date = date.Text()
	}

	if desc := entry.FindElement("./NtryDtls/TxDtls/RmtInf/Ustrd"); desc != nil {
		in.Description = desc.Text()
	} else if info := entry.FindElement("./AddtlNtryInf"); info != nil {
		in.Description = info.Text()
	}

	return in
}
