// Command gastos-analyze prints the analysis of a JSON file of transactions.
//
// The input is either {"transactions": [...], "period": "30d"} or a bare
// array of transactions. Use "-" to read standard input.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gastos/internal/core"
	"gastos/internal/insights"
)

type input struct {
	Transactions []inputTransaction `json:"transactions"`
	Period       string             `json:"period"`
}

type inputTransaction struct {
	Type        string      `json:"type"`
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "gastos-analyze:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("gastos-analyze", flag.ContinueOnError)
	policyFlag := fs.String("policy", string(insights.PolicyRules), "insight policy: rules or bands")
	periodFlag := fs.String("period", "", "period label, overrides the file")
	compact := fs.Bool("compact", false, "print JSON on one line")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: gastos-analyze [-policy rules|bands] [-period label] <file|->")
	}

	policy, err := insights.ParsePolicy(*policyFlag)
	if err != nil {
		return err
	}

	var r io.Reader = stdin
	if path := fs.Arg(0); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	in, err := decodeInput(r)
	if err != nil {
		return err
	}
	if *periodFlag != "" {
		in.Period = *periodFlag
	}

	txs, err := toTransactions(in.Transactions)
	if err != nil {
		return err
	}

	res := insights.NewEngine(policy, insights.DefaultThresholds()).Run(txs, in.Period)

	enc := json.NewEncoder(stdout)
	if !*compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(res)
}

func decodeInput(r io.Reader) (input, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return input{}, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return input{}, errors.New("empty input")
	}

	var in input
	if data[0] == '[' {
		err = json.Unmarshal(data, &in.Transactions)
	} else {
		err = json.Unmarshal(data, &in)
	}
	if err != nil {
		return input{}, fmt.Errorf("decode input: %w", err)
	}
	return in, nil
}

func toTransactions(items []inputTransaction) ([]core.Transaction, error) {
	txs := make([]core.Transaction, 0, len(items))
	for i, item := range items {
		typ, err := core.ParseTransactionType(item.Type)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		amount, err := core.MoneyFromString(item.Amount.String())
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		tx := core.Transaction{
			Type:        typ,
			Amount:      amount,
			Category:    core.NormalizeCategory(item.Category),
			Description: item.Description,
		}
		if d := strings.TrimSpace(item.Date); d != "" {
			if tx.Date, err = parseDate(d); err != nil {
				return nil, fmt.Errorf("transaction %d: %w", i, err)
			}
		}
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
}
