package dataengine_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/currency"
	"github.com/datacoinlabs/datacoin/foundation/dataengine"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func TestQualityBP(t *testing.T) {
	type table struct {
		name    string
		metrics dataengine.Metrics
		exp     uint64
	}

	tt := []table{
		{name: "empty metrics score low", metrics: dataengine.Metrics{}, exp: dataengine.QualityMinBP},
		{name: "fast response with some points", metrics: dataengine.Metrics{ResponseTimeMS: 500, DataPoints: 50}, exp: 10_000},
		{name: "rich collection scores high", metrics: dataengine.Metrics{ContentSizeMMB: 2_000, ResponseTimeMS: 500, LinksCount: 50, ImagesCount: 10, DataPoints: 500}, exp: dataengine.QualityMaxBP},
		{name: "slow response earns nothing", metrics: dataengine.Metrics{ResponseTimeMS: 10_000, DataPoints: 5}, exp: dataengine.QualityMinBP},
	}

	t.Log("Given the need to score collection metrics into a multiplier.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen scoring %s.", testID, tst.name)
			{
				if got := dataengine.QualityBP(tst.metrics); got != tst.exp {
					t.Fatalf("\t%s\tTest %d:\tShould score %d basis points, got %d.", failed, testID, tst.exp, got)
				}
				t.Logf("\t%s\tTest %d:\tShould score %d basis points.", success, testID, tst.exp)
			}
		}
	}
}

func TestValuate(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	t.Log("Given the need to turn collected data into currency.")
	{
		t.Logf("\tTest 0:\tWhen every multiplier is the identity.")
		{
			// Medium quality, unregistered web source, never collected.
			metrics := dataengine.Metrics{ResponseTimeMS: 500, DataPoints: 50}

			value := dataengine.Valuate(1_000, 5_000, metrics, dataengine.DataSource{}, now)
			if value != 5_000 {
				t.Fatalf("\t%s\tTest 0:\tShould value 5MB at 0.005 coins, got %s.", failed, value)
			}
			t.Logf("\t%s\tTest 0:\tShould value 5MB at 0.005 coins.", success)
		}

		t.Logf("\tTest 1:\tWhen the source carries type, weight and freshness.")
		{
			ds := dataengine.DataSource{
				ID:            "feed-1",
				Type:          dataengine.SourceTypeAPI,
				WeightBP:      12_000,
				LastCollected: uint64(now.Add(-30 * time.Minute).Unix()),
			}
			metrics := dataengine.Metrics{ResponseTimeMS: 500, DataPoints: 50}

			// 5000 base * 1.0 quality * 1.5 api * 1.2 weight * 1.5 fresh.
			value := dataengine.Valuate(1_000, 5_000, metrics, ds, now)
			if value != 13_500 {
				t.Fatalf("\t%s\tTest 1:\tShould value at 13500 units, got %d.", failed, value)
			}
			t.Logf("\t%s\tTest 1:\tShould value at 13500 units.", success)
		}

		t.Logf("\tTest 2:\tWhen the collection is a day old.")
		{
			ds := dataengine.DataSource{
				ID:            "feed-2",
				Type:          dataengine.SourceTypeWeb,
				WeightBP:      dataengine.OneWeight,
				LastCollected: uint64(now.Add(-48 * time.Hour).Unix()),
			}
			metrics := dataengine.Metrics{ResponseTimeMS: 500, DataPoints: 50}

			// Stale data earns the floor bonus of 1.0.
			value := dataengine.Valuate(1_000, 5_000, metrics, ds, now)
			if value != 5_000 {
				t.Fatalf("\t%s\tTest 2:\tShould value at 5000 units, got %d.", failed, value)
			}
			t.Logf("\t%s\tTest 2:\tShould earn no freshness bonus.", success)
		}

		t.Logf("\tTest 3:\tWhen the quality band clamps a poor collection.")
		{
			value := dataengine.Valuate(1_000, 5_000, dataengine.Metrics{}, dataengine.DataSource{}, now)
			if value != currency.Units(5_000).ApplyBP(dataengine.QualityMinBP) {
				t.Fatalf("\t%s\tTest 3:\tShould be halved by the quality floor, got %d.", failed, value)
			}
			t.Logf("\t%s\tTest 3:\tShould be halved by the quality floor.", success)
		}
	}
}

func TestRegistry(t *testing.T) {
	t.Log("Given the need to persist the source registry.")
	{
		t.Logf("\tTest 0:\tWhen registering, collecting and reloading.")
		{
			dbPath := filepath.Join(t.TempDir(), "sources.json")

			eng, err := dataengine.New(dbPath, nil)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould construct the engine: %v", failed, err)
			}

			ds := dataengine.DataSource{ID: "feed-1", Type: dataengine.SourceTypeRSS, URL: "https://example.com/rss"}
			if err := eng.AddSource(ds); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould register the source: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould register the source.", success)

			got, err := eng.Source("feed-1")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould look up the source: %v", failed, err)
			}
			if got.WeightBP != dataengine.OneWeight {
				t.Fatalf("\t%s\tTest 0:\tShould default the weight to 1.0, got %d.", failed, got.WeightBP)
			}
			t.Logf("\t%s\tTest 0:\tShould default the weight to 1.0.", success)

			collected := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
			if err := eng.MarkCollected("feed-1", 2_500, collected); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould mark the source collected: %v", failed, err)
			}

			// A second engine over the same file must see the same registry.
			eng2, err := dataengine.New(dbPath, nil)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould reload the registry: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reload the registry.", success)

			got, err = eng2.Source("feed-1")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould find the source after reload: %v", failed, err)
			}
			if got.LastCollected != uint64(collected.Unix()) {
				t.Fatalf("\t%s\tTest 0:\tShould keep the collection time, got %d.", failed, got.LastCollected)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the collection time.", success)

			if got.ConvertedMMB != 2_500 {
				t.Fatalf("\t%s\tTest 0:\tShould keep the conversion total, got %d.", failed, got.ConvertedMMB)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the conversion total.", success)
		}

		t.Logf("\tTest 1:\tWhen working with unknown sources.")
		{
			eng, err := dataengine.New(filepath.Join(t.TempDir(), "sources.json"), nil)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould construct the engine: %v", failed, err)
			}

			if _, err := eng.Source("missing"); err != dataengine.ErrSourceNotFound {
				t.Fatalf("\t%s\tTest 1:\tShould get ErrSourceNotFound, got %v.", failed, err)
			}
			if err := eng.RemoveSource("missing"); err != dataengine.ErrSourceNotFound {
				t.Fatalf("\t%s\tTest 1:\tShould get ErrSourceNotFound on remove, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get ErrSourceNotFound for unknown ids.", success)
		}
	}
}
