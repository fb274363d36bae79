// Package fixture provides the geography dataset shared by the engine
// tests: continents contain regions, regions contain countries and
// countries contain rivers.
package fixture

import (
	"time"

	"github.com/siftql/sift/pkg/schema"
	"github.com/siftql/sift/pkg/storage"
)

func mustTime(day string) time.Time {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return t
}

// Registry declares the geography schema.
func Registry() *schema.Registry {
	reg := schema.NewRegistry()

	continent := schema.NewEntity("continent").
		AddField("id", schema.TypeInt).
		AddField("name", schema.TypeString).
		AddToMany("regions", "region").
		AddInverse("regions", "continent")
	region := schema.NewEntity("region").
		AddField("id", schema.TypeInt).
		AddField("name", schema.TypeString).
		AddToOne("continent", "continent").
		AddToMany("countries", "country").
		AddInverse("countries", "region")
	country := schema.NewEntity("country").
		AddField("id", schema.TypeInt).
		AddField("name", schema.TypeString).
		AddField("population", schema.TypeInt).
		AddField("area", schema.TypeInt).
		AddField("independence", schema.TypeTime).
		AddToOne("region", "region").
		AddToMany("rivers", "river").
		AddInverse("rivers", "country")
	river := schema.NewEntity("river").
		AddField("id", schema.TypeInt).
		AddField("name", schema.TypeString).
		AddField("length", schema.TypeInt).
		AddField("discharge", schema.TypeFloat).
		AddToOne("country", "country")

	reg.MustRegister(continent, region, country, river)
	if err := reg.Validate(); err != nil {
		panic(err)
	}
	return reg
}

// Store returns a populated in-memory store over the geography schema.
func Store() *storage.Store {
	store := storage.NewStore(Registry())

	add := func(entity string, insts ...storage.Instance) {
		if err := store.AddAll(entity, insts...); err != nil {
			panic(err)
		}
	}

	add("continent",
		storage.Instance{"id": 1, "name": "Africa", "regions": []interface{}{1}},
		storage.Instance{"id": 2, "name": "Asia", "regions": []interface{}{2}},
		storage.Instance{"id": 3, "name": "Europe", "regions": []interface{}{3, 4}},
	)
	add("region",
		storage.Instance{"id": 1, "name": "Northern Africa", "continent": 1, "countries": []interface{}{1}},
		storage.Instance{"id": 2, "name": "Eastern Asia", "continent": 2, "countries": []interface{}{2}},
		storage.Instance{"id": 3, "name": "Western Europe", "continent": 3, "countries": []interface{}{3, 4}},
		storage.Instance{"id": 4, "name": "Southern Europe", "continent": 3, "countries": []interface{}{5}},
	)
	add("country",
		storage.Instance{
			"id": 1, "name": "Egypt", "population": 104258327, "area": 1001450,
			"independence": mustTime("1922-02-28"), "region": 1,
			"rivers": []interface{}{1},
		},
		storage.Instance{
			"id": 2, "name": "China", "population": 1444216107, "area": 9596961,
			"independence": mustTime("1949-10-01"), "region": 2,
			"rivers": []interface{}{2, 3},
		},
		storage.Instance{
			"id": 3, "name": "France", "population": 67422000, "area": 643801,
			"independence": mustTime("1789-07-14"), "region": 3,
			"rivers": []interface{}{4, 5},
		},
		storage.Instance{
			"id": 4, "name": "Germany", "population": 83190556, "area": 357022,
			"independence": mustTime("1871-01-18"), "region": 3,
			"rivers": []interface{}{6},
		},
		storage.Instance{
			"id": 5, "name": "Italy", "population": 59554023, "area": 301340,
			"independence": mustTime("1861-03-17"), "region": 4,
			"rivers": []interface{}{7},
		},
	)
	add("river",
		storage.Instance{"id": 1, "name": "Nile", "length": 6650, "discharge": 2830.0, "country": 1},
		storage.Instance{"id": 2, "name": "Yangtze", "length": 6300, "discharge": 30166.0, "country": 2},
		storage.Instance{"id": 3, "name": "Yellow River", "length": 5464, "discharge": 2571.0, "country": 2},
		storage.Instance{"id": 4, "name": "Loire", "length": 1006, "discharge": 835.0, "country": 3},
		storage.Instance{"id": 5, "name": "Seine", "length": 775, "discharge": 560.0, "country": 3},
		storage.Instance{"id": 6, "name": "Rhine", "length": 1233, "discharge": 2900.0, "country": 4},
		storage.Instance{"id": 7, "name": "Po", "length": 652, "discharge": 1540.0, "country": 5},
	)
	return store
}
