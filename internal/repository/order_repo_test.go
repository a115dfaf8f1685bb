package repository

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storesync_dev_v1_202608/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	err = db.AutoMigrate(
		&model.Store{},
		&model.Order{}, &model.OrderLine{}, &model.OrderDestination{},
		&model.OrderRouting{},
	)
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func TestOrderRepo_CreateAndDedupLookup(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order := &model.Order{
		SourceStoreID: 1,
		SourceOrderID: "1001",
		OrderNumber:   "#1001",
		Status:        model.OrderStatusPending,
		Lines: []model.OrderLine{
			{SKU: "SKU-1", Title: "商品 A", Quantity: 2, Price: "19.99"},
			{SKU: "SKU-2", Title: "商品 B", Quantity: 1, Price: "9.99"},
		},
	}
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("订单创建失败: %v", err)
	}
	if order.ID == 0 {
		t.Fatal("订单 ID 未生成")
	}

	// 行项目随订单一起写入
	got, err := repo.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("订单查询失败: %v", err)
	}
	if len(got.Lines) != 2 {
		t.Errorf("订单行数量错误: %d", len(got.Lines))
	}

	// 去重键查询
	dup, err := repo.GetBySourceOrder(ctx, 1, "1001")
	if err != nil || dup == nil {
		t.Fatalf("去重查询失败: %v", err)
	}
	if dup.ID != order.ID {
		t.Errorf("去重查询结果错误: %d", dup.ID)
	}

	// 不存在时返回 (nil, nil)
	missing, err := repo.GetBySourceOrder(ctx, 1, "9999")
	if err != nil {
		t.Errorf("未命中不应报错: %v", err)
	}
	if missing != nil {
		t.Errorf("未命中应返回 nil: %+v", missing)
	}
}

func TestOrderRepo_ListRoutable(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	mk := func(sourceOrderID, status string, age time.Duration) *model.Order {
		o := &model.Order{SourceStoreID: 1, SourceOrderID: sourceOrderID, Status: status}
		if err := repo.Create(ctx, o); err != nil {
			t.Fatalf("订单创建失败: %v", err)
		}
		if age > 0 {
			db.Model(o).Update("created_at", time.Now().UTC().Add(-age))
		}
		return o
	}

	pending := mk("1", model.OrderStatusPending, 0)
	failedOld := mk("2", model.OrderStatusFailed, 30*time.Minute)
	mk("3", model.OrderStatusFailed, time.Minute) // 冷却期内
	mk("4", model.OrderStatusSynced, time.Hour)
	mk("5", model.OrderStatusNeedsReview, time.Hour)

	orders, err := repo.ListRoutable(ctx, 10*time.Minute)
	if err != nil {
		t.Fatalf("待路由查询失败: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("待路由数量错误: got %d, want 2", len(orders))
	}
	if orders[0].ID != pending.ID || orders[1].ID != failedOld.ID {
		t.Errorf("待路由结果错误: %d, %d", orders[0].ID, orders[1].ID)
	}
}

func TestOrderRepo_StageCandidates(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	destID := int64(2)
	now := time.Now().UTC()
	oldSync := now.Add(-10 * time.Minute)
	freshSync := now.Add(-time.Minute)

	mk := func(sourceOrderID string, syncedAt *time.Time, trackingSyncedAt *time.Time, withDest bool) *model.Order {
		o := &model.Order{
			SourceStoreID:    1,
			SourceOrderID:    sourceOrderID,
			Status:           model.OrderStatusSynced,
			SyncedAt:         syncedAt,
			TrackingSyncedAt: trackingSyncedAt,
		}
		if withDest {
			o.DestinationStoreID = &destID
			o.DestinationOrderID = "dest-" + sourceOrderID
		}
		if err := repo.Create(ctx, o); err != nil {
			t.Fatalf("订单创建失败: %v", err)
		}
		return o
	}

	ready := mk("1", &oldSync, nil, true)
	inGrace := mk("2", &freshSync, nil, true)
	processed := mk("3", &oldSync, &now, true)
	noDest := mk("4", &oldSync, nil, false)

	// 取消检查候选：synced + 未处理 + 目标信息完整（宽限期不限制）
	cancels, err := repo.ListCancellationCandidates(ctx)
	if err != nil {
		t.Fatalf("取消候选查询失败: %v", err)
	}
	if len(cancels) != 2 || cancels[0].ID != ready.ID || cancels[1].ID != inGrace.ID {
		t.Errorf("取消候选错误: %d 条", len(cancels))
	}

	// 物流回写候选：额外要求同步时间早于宽限窗口
	trackings, err := repo.ListTrackingCandidates(ctx, 5*time.Minute)
	if err != nil {
		t.Fatalf("物流候选查询失败: %v", err)
	}
	if len(trackings) != 2 {
		t.Fatalf("物流候选数量错误: got %d", len(trackings))
	}
	for _, o := range trackings {
		if o.ID == processed.ID || o.ID == inGrace.ID {
			t.Errorf("不应入选的订单: %d", o.ID)
		}
	}
	_ = noDest
}

func TestOrderRepo_DestinationsAndCounts(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	destID := int64(7)
	order := &model.Order{
		SourceStoreID:      3,
		SourceOrderID:      "1001",
		DestinationStoreID: &destID,
		Status:             model.OrderStatusSynced,
	}
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("订单创建失败: %v", err)
	}

	err := repo.AddDestination(ctx, &model.OrderDestination{
		OrderID:            order.ID,
		DestinationStoreID: destID,
		DestinationOrderID: "dest-1",
		LookupMethod:       model.LookupMethodSKU,
	})
	if err != nil {
		t.Fatalf("分发记录写入失败: %v", err)
	}

	// (order_id, destination_store_id) 唯一，重复写入报错
	err = repo.AddDestination(ctx, &model.OrderDestination{
		OrderID:            order.ID,
		DestinationStoreID: destID,
		DestinationOrderID: "dest-2",
	})
	if err == nil {
		t.Error("重复分发记录应报错")
	}

	dests, err := repo.ListDestinations(ctx, order.ID)
	if err != nil || len(dests) != 1 {
		t.Fatalf("分发记录查询错误: %v, %d 条", err, len(dests))
	}
	if dests[0].DestinationOrderID != "dest-1" {
		t.Errorf("分发记录内容错误: %+v", dests[0])
	}

	// 来源或目标引用均计数
	for _, storeID := range []int64{3, 7} {
		count, err := repo.CountByStore(ctx, storeID)
		if err != nil || count != 1 {
			t.Errorf("店铺 %d 引用计数错误: %d (%v)", storeID, count, err)
		}
	}
	count, _ := repo.CountByStore(ctx, 99)
	if count != 0 {
		t.Errorf("无引用店铺计数错误: %d", count)
	}
}

func TestOrderRepo_ListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	orders := []*model.Order{
		{SourceStoreID: 1, SourceOrderID: "1", OrderNumber: "#1001", CustomerName: "Anna Schmidt", Status: model.OrderStatusPending},
		{SourceStoreID: 1, SourceOrderID: "2", OrderNumber: "#1002", CustomerName: "Max Mustermann", Status: model.OrderStatusSynced},
		{SourceStoreID: 2, SourceOrderID: "3", OrderNumber: "#2001", CustomerName: "Anna Meier", Status: model.OrderStatusPending},
	}
	for _, o := range orders {
		if err := repo.Create(ctx, o); err != nil {
			t.Fatalf("订单创建失败: %v", err)
		}
	}

	got, total, err := repo.List(ctx, OrderFilter{SourceStoreID: 1})
	if err != nil || total != 2 || len(got) != 2 {
		t.Errorf("来源过滤错误: total=%d len=%d (%v)", total, len(got), err)
	}

	_, total, _ = repo.List(ctx, OrderFilter{Status: model.OrderStatusPending})
	if total != 2 {
		t.Errorf("状态过滤错误: %d", total)
	}

	_, total, _ = repo.List(ctx, OrderFilter{Keyword: "Anna"})
	if total != 2 {
		t.Errorf("关键词过滤错误: %d", total)
	}

	got, total, _ = repo.List(ctx, OrderFilter{Page: 2, PageSize: 2})
	if total != 3 || len(got) != 1 {
		t.Errorf("分页错误: total=%d len=%d", total, len(got))
	}
}
