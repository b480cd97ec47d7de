package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func newProduct(id string) domain.Product {
	return domain.Product{
		ID:     id,
		Name:   "Desk lamp",
		Price:  19.99,
		Images: []string{memory.ImageURLBase + "lamp.png"},
	}
}

func TestProductRepository_UpsertGet(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepository()
	product := newProduct("p-1")

	if err := repo.Upsert(ctx, product); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	stored, err := repo.Get(ctx, product.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Name != product.Name || len(stored.Images) != 1 {
		t.Fatalf("unexpected product: %+v", stored)
	}

	// Мутация возвращённой копии не должна влиять на хранилище.
	stored.Images[0] = "changed"
	again, _ := repo.Get(ctx, product.ID)
	if again.Images[0] == "changed" {
		t.Fatal("repository leaked internal slice")
	}
}

func TestProductRepository_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepository()
	product := newProduct("p-1")
	_ = repo.Upsert(ctx, product)

	product.Name = "Floor lamp"
	product.Images = nil
	if err := repo.Upsert(ctx, product); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	stored, _ := repo.Get(ctx, "p-1")
	if stored.Name != "Floor lamp" || len(stored.Images) != 0 {
		t.Fatalf("expected full replace, got %+v", stored)
	}
}

func TestProductRepository_GetMissing(t *testing.T) {
	repo := memory.NewProductRepository()
	_, err := repo.Get(context.Background(), "absent")
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductRepository_ListDelete(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepository()
	_ = repo.Upsert(ctx, newProduct("p-2"))
	_ = repo.Upsert(ctx, newProduct("p-1"))

	products, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(products) != 2 || products[0].ID != "p-1" {
		t.Fatalf("unexpected list: %+v", products)
	}

	if err := repo.Delete(ctx, "p-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := repo.Delete(ctx, "p-1"); err != nil {
		t.Fatalf("second delete must be a no-op, got %v", err)
	}
	products, _ = repo.List(ctx)
	if len(products) != 1 {
		t.Fatalf("expected 1 product after delete, got %d", len(products))
	}
}

func TestProductRepository_PreservesEmptyImages(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepository()

	if err := repo.Upsert(ctx, domain.Product{ID: "p-1", Name: "Mug", Images: []string{}}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	got, err := repo.Get(ctx, "p-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Images == nil {
		t.Fatal("empty images must stay an empty slice")
	}
}
