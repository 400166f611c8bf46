package mango_test

import (
	"context"
	"fmt"
	"log"

	mango "github.com/vinicius-lino-figueiredo/mango"
)

type Person struct {
	mango.Doc
	Name    string   `mango:"name"`
	Age     int      `mango:"age"`
	Friends []string `mango:"friends"`
}

// Example composes a typed query, runs it and follows the changes feed.
func Example() {
	client, err := mango.NewClient(
		mango.WithEndpoint("http://localhost:5984"),
		mango.WithAuth("admin", "secret"),
		mango.WithCaseStyle(mango.CaseCamel),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	db, err := client.Database("people")
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()

	luke := &Person{Name: "Luke", Age: 19, Friends: []string{"Leia"}}
	if _, err := db.Save(ctx, luke); err != nil {
		log.Fatal(err)
	}

	var adults []Person
	q := mango.NewQuery().
		Where(mango.F("Age").Ge(18).And(
			mango.F("Friends").Any(mango.Elem().Eq("Leia")),
		)).
		OrderBy(mango.F("Age")).
		Take(10)
	if _, err := db.Query(ctx, q, &adults); err != nil {
		log.Fatal(err)
	}

	feed, err := db.ContinuousChanges(ctx, mango.WithSince("now"))
	if err != nil {
		log.Fatal(err)
	}
	defer feed.Close()
	for feed.Next() {
		fmt.Println(feed.Event().ID)
	}
}
