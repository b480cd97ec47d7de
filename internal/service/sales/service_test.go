package sales

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

type stubPublisher struct {
	events []domain.Event
	err    error
}

func (p *stubPublisher) Publish(_ context.Context, event domain.Event) error {
	p.events = append(p.events, event)
	return p.err
}

var fixedNow = time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

func newTestService(publisher domain.EventPublisher) (*Service, domain.SalesRepository) {
	repo := memory.NewSalesRepository()
	svc := NewService(repo, publisher, nil)
	svc.newID = func() string { return "sale-generated" }
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func TestRecord_GeneratesIDAndTimestamp(t *testing.T) {
	t.Parallel()
	publisher := &stubPublisher{}
	svc, repo := newTestService(publisher)

	id, err := svc.Record(context.Background(), domain.Sale{UserEmail: "a@x", TotalAmount: 11.3})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if id != "sale-generated" {
		t.Fatalf("expected generated id, got %q", id)
	}

	stored, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 || !stored[0].Timestamp.Equal(fixedNow) {
		t.Fatalf("unexpected stored sale: %+v", stored)
	}
	if stored[0].Products == nil {
		t.Fatal("products must be normalized to an empty slice")
	}
	if len(publisher.events) != 1 || publisher.events[0].Type != domain.EventSaleRecorded {
		t.Fatalf("expected sale.recorded event, got %+v", publisher.events)
	}
}

func TestRecord_KeepsProvidedIDAndTimestamp(t *testing.T) {
	t.Parallel()
	svc, repo := newTestService(nil)
	ts := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)

	id, err := svc.Record(context.Background(), domain.Sale{SaleID: "s-1", UserEmail: "a@x", Timestamp: ts})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if id != "s-1" {
		t.Fatalf("expected s-1, got %q", id)
	}
	sales, _ := repo.ListByUser(context.Background(), "a@x")
	if len(sales) != 1 || !sales[0].Timestamp.Equal(ts) {
		t.Fatalf("unexpected sales: %+v", sales)
	}
}

func TestRecord_RequiresUserEmail(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(nil)

	if _, err := svc.Record(context.Background(), domain.Sale{TotalAmount: 1}); !errors.Is(err, domain.ErrUserEmailRequired) {
		t.Fatalf("expected ErrUserEmailRequired, got %v", err)
	}
}

func TestRecord_PublishFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(&stubPublisher{err: errors.New("broker down")})

	if _, err := svc.Record(context.Background(), domain.Sale{UserEmail: "a@x"}); err != nil {
		t.Fatalf("publish failure must not fail the write: %v", err)
	}
}

func TestRecord_SameIDOverwrites(t *testing.T) {
	t.Parallel()
	svc, repo := newTestService(nil)
	ctx := context.Background()

	_, _ = svc.Record(ctx, domain.Sale{SaleID: "cs_1", UserEmail: "a@x", TotalAmount: 10})
	_, _ = svc.Record(ctx, domain.Sale{SaleID: "cs_1", UserEmail: "a@x", TotalAmount: 10})

	all, _ := repo.List(ctx)
	if len(all) != 1 {
		t.Fatalf("expected a single sale, got %d", len(all))
	}
}

func TestListByUserAndDelete(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(nil)
	ctx := context.Background()

	_, _ = svc.Record(ctx, domain.Sale{SaleID: "s-1", UserEmail: "a@x"})
	_, _ = svc.Record(ctx, domain.Sale{SaleID: "s-2", UserEmail: "b@x"})

	mine, err := svc.ListByUser(ctx, "a@x")
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(mine) != 1 || mine[0].SaleID != "s-1" {
		t.Fatalf("unexpected sales: %+v", mine)
	}

	if err := svc.Delete(ctx, "s-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, "s-1"); err != nil {
		t.Fatalf("second delete must succeed: %v", err)
	}
	if err := svc.Delete(ctx, " "); !errors.Is(err, domain.ErrSaleIDRequired) {
		t.Fatalf("expected ErrSaleIDRequired, got %v", err)
	}

	all, _ := svc.List(ctx)
	if len(all) != 1 || all[0].SaleID != "s-2" {
		t.Fatalf("unexpected remaining sales: %+v", all)
	}

	empty, err := svc.ListByUser(ctx, "nobody@x")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty slice, got %#v / %v", empty, err)
	}
}
