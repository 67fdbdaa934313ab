package currency_test

import (
	"testing"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/currency"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestParse(t *testing.T) {
	type table struct {
		name   string
		amount string
		units  currency.Units
		fails  bool
	}

	tt := []table{
		{name: "whole", amount: "10", units: 10_000_000},
		{name: "fraction", amount: "0.005", units: 5_000},
		{name: "mixed", amount: "1.5", units: 1_500_000},
		{name: "full precision", amount: "0.000001", units: 1},
		{name: "too precise", amount: "0.0000001", fails: true},
		{name: "garbage", amount: "ten", fails: true},
	}

	t.Log("Given the need to parse decimal coin amounts.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen parsing %q.", testID, tst.amount)
			{
				units, err := currency.Parse(tst.amount)
				if tst.fails {
					if err == nil {
						t.Fatalf("\t%s\tTest %d:\tShould reject the amount.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould reject the amount.", success, testID)
					continue
				}

				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould parse the amount: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould parse the amount.", success, testID)

				if units != tst.units {
					t.Fatalf("\t%s\tTest %d:\tShould get %d units, got %d.", failed, testID, tst.units, units)
				}
				t.Logf("\t%s\tTest %d:\tShould get %d units.", success, testID, tst.units)
			}
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	t.Log("Given the need to format units back to decimal form.")
	{
		amounts := []string{"10", "0.005", "1.5", "0.000001"}
		for testID, amount := range amounts {
			t.Logf("\tTest %d:\tWhen formatting %q.", testID, amount)
			{
				units, err := currency.Parse(amount)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould parse the amount: %v", failed, testID, err)
				}

				if got := units.String(); got != amount {
					t.Fatalf("\t%s\tTest %d:\tShould round trip, got %q, exp %q.", failed, testID, got, amount)
				}
				t.Logf("\t%s\tTest %d:\tShould round trip.", success, testID)
			}
		}
	}
}

func TestApplyBP(t *testing.T) {
	t.Log("Given the need to scale units by basis point multipliers.")
	{
		t.Logf("\tTest 0:\tWhen applying 1.5x to 1 coin.")
		{
			units := currency.Units(1_000_000)
			if got := units.ApplyBP(15_000); got != 1_500_000 {
				t.Fatalf("\t%s\tTest 0:\tShould get 1500000 units, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould get 1500000 units.", success)
		}

		t.Logf("\tTest 1:\tWhen applying the identity multiplier.")
		{
			units := currency.Units(123_456)
			if got := units.ApplyBP(currency.OneBP); got != units {
				t.Fatalf("\t%s\tTest 1:\tShould be unchanged, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 1:\tShould be unchanged.", success)
		}

		t.Logf("\tTest 2:\tWhen clamping multipliers to a band.")
		{
			if got := currency.ClampBP(3_000, 5_000, 20_000); got != 5_000 {
				t.Fatalf("\t%s\tTest 2:\tShould clamp up to 5000, got %d.", failed, got)
			}
			if got := currency.ClampBP(50_000, 5_000, 20_000); got != 20_000 {
				t.Fatalf("\t%s\tTest 2:\tShould clamp down to 20000, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 2:\tShould clamp to the band.", success)
		}
	}
}
