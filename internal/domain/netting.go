package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Difference is how far an account is from its fair-share balance:
// negative means the owner owes money, positive means they are owed.
type Difference struct {
	AccountID AccountID
	Amount    Money
}

// Transfer is a payment between two accounts proposed by NetDifferences.
type Transfer struct {
	From   AccountID
	To     AccountID
	Amount Money
}

type netEntry struct {
	account   AccountID
	remaining decimal.Decimal
}

// NetDifferences turns per-account differences into a list of transfers that
// cancels them out.
//
// Debtors are visited largest debt first. Each debtor pays their whole debt
// to the first creditor (smallest credit first) able to absorb it; when no
// single creditor can, the debt is spread over creditors in order until it
// is paid. Entries with equal amounts keep their input order, so the same
// input always yields the same transfers. Amounts within epsilon of zero are
// treated as zero.
func NetDifferences(differences []Difference, currency string, epsilon decimal.Decimal) ([]Transfer, error) {
	var debtors, creditors []netEntry

	totalDebt := decimal.Zero
	totalCredit := decimal.Zero

	for _, d := range differences {
		if d.Amount.Currency() != currency {
			return nil, &CurrencyMismatchError{Left: currency, Right: d.Amount.Currency()}
		}

		amount := d.Amount.Amount()
		switch {
		case amount.LessThan(epsilon.Neg()):
			debtors = append(debtors, netEntry{account: d.AccountID, remaining: amount.Neg()})
			totalDebt = totalDebt.Add(amount.Neg())
		case amount.GreaterThan(epsilon):
			creditors = append(creditors, netEntry{account: d.AccountID, remaining: amount})
			totalCredit = totalCredit.Add(amount)
		}
	}

	if totalDebt.Sub(totalCredit).Abs().GreaterThan(epsilon) {
		return nil, fmt.Errorf("%w: debt %s, credit %s", ErrUnbalancedDifferences, totalDebt, totalCredit)
	}

	sort.SliceStable(debtors, func(i, j int) bool {
		return debtors[i].remaining.GreaterThan(debtors[j].remaining)
	})
	sort.SliceStable(creditors, func(i, j int) bool {
		return creditors[i].remaining.LessThan(creditors[j].remaining)
	})

	var transfers []Transfer
	emit := func(from, to AccountID, amount decimal.Decimal) {
		transfers = append(transfers, Transfer{From: from, To: to, Amount: NewMoney(amount, currency)})
	}

	for i := range debtors {
		debtor := debtors[i].account
		debt := debtors[i].remaining

		covered := false
		for j := range creditors {
			if creditors[j].remaining.GreaterThanOrEqual(debt.Sub(epsilon)) {
				emit(debtor, creditors[j].account, debt)
				creditors[j].remaining = creditors[j].remaining.Sub(debt)
				debt = decimal.Zero
				covered = true
				break
			}
		}

		if !covered {
			for j := 0; j < len(creditors) && debt.GreaterThan(epsilon); j++ {
				credit := creditors[j].remaining
				if credit.LessThanOrEqual(epsilon) {
					continue
				}

				if credit.LessThanOrEqual(debt) {
					emit(debtor, creditors[j].account, credit)
					debt = debt.Sub(credit)
					creditors[j].remaining = decimal.Zero
				} else {
					emit(debtor, creditors[j].account, debt)
					creditors[j].remaining = credit.Sub(debt)
					debt = decimal.Zero
				}
			}
		}

		if debt.GreaterThan(epsilon) {
			return nil, fmt.Errorf("%w: %s left unpaid by %s", ErrUnbalancedDifferences, debt, debtor)
		}
		debtors[i].remaining = decimal.Zero

		creditors = compactCreditors(creditors, epsilon)
	}

	return transfers, nil
}

// compactCreditors drops exhausted creditors, keeping the order of the rest.
func compactCreditors(creditors []netEntry, epsilon decimal.Decimal) []netEntry {
	kept := creditors[:0]
	for _, c := range creditors {
		if c.remaining.GreaterThan(epsilon) {
			kept = append(kept, c)
		}
	}
	return kept
}
