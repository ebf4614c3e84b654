package formvault_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/formvault"
	"github.com/hupe1980/formvault/document"
	"github.com/hupe1980/formvault/kvstore"
)

func Example() {
	ctx := context.Background()

	vault, err := formvault.New(ctx, kvstore.NewMemoryStore(),
		formvault.WithLogger(formvault.NoopLogger()),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer vault.Close()

	doc := document.Default()
	doc.Profile.FullName = "Ada Lovelace"
	doc.Experience = append(doc.Experience, document.WorkExperienceRecord{
		Company:  "Analytical Engines Ltd",
		Position: "Programmer",
		Current:  true,
	})

	if err := vault.Save(ctx, doc); err != nil {
		log.Fatal(err)
	}

	res := vault.Load(ctx)
	fmt.Println(res.Data.Profile.FullName, res.Recovered)
	// Output:
	// Ada Lovelace false
}
