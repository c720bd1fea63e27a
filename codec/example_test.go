package codec_test

import (
	"fmt"

	indexedtable "github.com/karupanerura/indexed-table"
	"github.com/karupanerura/indexed-table/codec"
)

// Article represents a knowledge-base article
type Article struct {
	Slug   string `json:"slug"`
	Title  string `json:"title"`
	Topic  string `json:"topic"`
	Status string `json:"status"`
}

func (a Article) Key() string {
	return a.Slug
}

func (a Article) Categories() []string {
	return []string{"topic:" + a.Topic, "status:" + a.Status}
}

func ExampleDump() {
	table := indexedtable.New[string, string, Article]()
	_ = table.Insert(Article{Slug: "go-iterators", Title: "Iterators in Go", Topic: "go", Status: "published"})
	_ = table.Insert(Article{Slug: "go-generics", Title: "Generics in Go", Topic: "go", Status: "draft"})

	data, err := codec.Dump[string, string, Article](nil, table)
	if err != nil {
		fmt.Println("dump failed:", err)
		return
	}

	loaded, err := codec.Load[string, string, Article](nil, data)
	if err != nil {
		fmt.Println("load failed:", err)
		return
	}

	fmt.Println(loaded.Len())
	fmt.Println(len(loaded.Find("topic:go")))
	fmt.Println(len(loaded.Find("status:draft")))
	// Output:
	// 2
	// 2
	// 1
}
