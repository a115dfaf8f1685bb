package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"storesync_dev_v1_202608/internal/api/dto"
	"storesync_dev_v1_202608/internal/connector"
	"storesync_dev_v1_202608/internal/model"
	"storesync_dev_v1_202608/internal/repository"
)

// ==================== 时间窗口常量 ====================

const (
	// IngestGracePeriod 入库宽限期：太新的订单跳过，给来源平台留出订单完成时间
	IngestGracePeriod = 5 * time.Minute

	// RetryCooldown 路由失败订单的重试冷却时间
	RetryCooldown = 10 * time.Minute

	// TrackingGracePeriod 物流回写宽限期：同步后等待目标店铺履约
	TrackingGracePeriod = 5 * time.Minute

	// FetchWindow 每轮拉取来源订单的时间窗口
	FetchWindow = 48 * time.Hour
)

// ==================== SyncService 订单同步服务 ====================

// ConnectorFactory 按店铺配置构造连接器
type ConnectorFactory func(store *model.Store) (connector.Connector, error)

// SyncService 订单同步编排服务，负责 4 个阶段的串行执行:
// 入库 -> 路由分发 -> 取消回写 -> 物流回写
// 单 worker 串行执行，每个阶段的查询条件幂等，周期中断后可安全续跑
type SyncService struct {
	storeRepo   repository.StoreRepository
	orderRepo   repository.OrderRepository
	routingRepo repository.RoutingRepository
	cycleRepo   repository.CycleLogRepository // 可为 nil（周期记录尽力而为）

	connect ConnectorFactory

	// 本轮周期收集的告警
	warnings []string
}

// NewSyncService 创建订单同步服务
func NewSyncService(
	storeRepo repository.StoreRepository,
	orderRepo repository.OrderRepository,
	routingRepo repository.RoutingRepository,
	cycleRepo repository.CycleLogRepository,
) *SyncService {
	return &SyncService{
		storeRepo:   storeRepo,
		orderRepo:   orderRepo,
		routingRepo: routingRepo,
		cycleRepo:   cycleRepo,
		connect:     connectorForStore,
	}
}

// connectorForStore 默认连接器工厂，走平台注册表
func connectorForStore(store *model.Store) (connector.Connector, error) {
	return connector.New(store.PlatformType, connector.Config{
		ShopURL:     store.ShopURL,
		AccessToken: store.AccessToken,
		APIVersion:  store.APIVersion,
	})
}

// ==================== 周期编排 ====================

// RunCycle 执行一轮完整同步
// 阶段级致命错误（通常是数据库故障）中断后续阶段并标记周期失败；
// 单个订单的错误在各阶段内部隔离，不会中断其余订单
func (s *SyncService) RunCycle(ctx context.Context) *dto.CycleResult {
	result := &dto.CycleResult{
		CycleID:   uuid.NewString(),
		Status:    model.CycleStatusSuccess,
		StartedAt: time.Now().UTC(),
	}
	s.warnings = nil

	log.Printf("[SyncService] 周期 %s 开始", result.CycleID)

	since := time.Now().UTC().Add(-FetchWindow)

	for {
		// 1. 拉取来源订单入库
		synced, err := s.PollSourceOrders(ctx, since)
		result.OrdersSynced = synced
		if err != nil {
			s.failCycle(result, "入库阶段失败", err)
			break
		}

		// 2. 路由分发到目标店铺
		routed, err := s.RoutePendingOrders(ctx)
		result.OrdersRouted = routed
		if err != nil {
			s.failCycle(result, "路由阶段失败", err)
			break
		}

		// 3. 目标取消回写来源
		cancelled, err := s.PollCancellations(ctx)
		result.OrdersCancelled = cancelled
		if err != nil {
			s.failCycle(result, "取消回写阶段失败", err)
			break
		}

		// 4. 物流单号回写来源
		tracked, err := s.PollTracking(ctx)
		result.TrackingUpdates = tracked
		if err != nil {
			s.failCycle(result, "物流回写阶段失败", err)
		}
		break
	}

	result.Errors = s.warnings
	result.FinishedAt = time.Now().UTC()

	log.Printf("[SyncService] 周期 %s 结束: 状态 %s, 入库 %d, 分发 %d, 取消 %d, 物流 %d",
		result.CycleID, result.Status,
		result.OrdersSynced, result.OrdersRouted, result.OrdersCancelled, result.TrackingUpdates)

	s.recordCycle(ctx, result)
	return result
}

func (s *SyncService) failCycle(result *dto.CycleResult, stage string, err error) {
	result.Status = model.CycleStatusError
	result.Error = fmt.Sprintf("%s: %v", stage, err)
	log.Printf("[SyncService] %s: %v", stage, err)
}

// recordCycle 周期结果落库（尽力而为，失败只打日志）
func (s *SyncService) recordCycle(ctx context.Context, result *dto.CycleResult) {
	if s.cycleRepo == nil {
		return
	}

	errs := result.Errors
	if result.Error != "" {
		errs = append([]string{result.Error}, errs...)
	}

	err := s.cycleRepo.Create(ctx, &model.SyncCycleLog{
		CycleID:         result.CycleID,
		Status:          result.Status,
		OrdersSynced:    result.OrdersSynced,
		OrdersRouted:    result.OrdersRouted,
		OrdersCancelled: result.OrdersCancelled,
		TrackingUpdates: result.TrackingUpdates,
		Errors:          errs,
		StartedAt:       result.StartedAt,
		FinishedAt:      result.FinishedAt,
	})
	if err != nil {
		log.Printf("[SyncService] 周期记录落库失败: %v", err)
	}
}

// ==================== 阶段 1: 入库 ====================

// PollSourceOrders 轮询所有来源店铺，新订单入库为 pending
// 去重键 (source_store_id, source_order_id)；创建不足 5 分钟的订单跳过；
// 返回新入库订单数
func (s *SyncService) PollSourceOrders(ctx context.Context, since time.Time) (int, error) {
	sources, err := s.storeRepo.ListByRole(ctx, model.StoreRoleSource)
	if err != nil {
		return 0, fmt.Errorf("查询来源店铺失败: %w", err)
	}
	if len(sources) == 0 {
		s.warn("未配置任何来源店铺")
		return 0, nil
	}

	total := 0
	for i := range sources {
		source := &sources[i]
		log.Printf("[SyncService] 轮询来源店铺 %s，拉取 %s 之后的订单", source.Name, since.Format(time.RFC3339))

		conn, err := s.connect(source)
		if err != nil {
			s.warn("来源店铺 %s 连接器创建失败: %v", source.Name, err)
			continue
		}

		orders, err := conn.FetchOrders(ctx, since)
		if err != nil {
			s.warn("来源店铺 %s 拉取订单失败: %v", source.Name, err)
			continue
		}
		log.Printf("[SyncService] 来源店铺 %s 返回 %d 个候选订单", source.Name, len(orders))

		for j := range orders {
			saved, err := s.ingestOrder(ctx, source, &orders[j])
			if err != nil {
				s.warn("订单 %s 入库失败: %v", orders[j].OrderNumber, err)
				continue
			}
			if saved {
				total++
			}
		}
	}
	return total, nil
}

// ingestOrder 单个订单入库，返回是否新建
func (s *SyncService) ingestOrder(ctx context.Context, source *model.Store, data *connector.OrderData) (bool, error) {
	// 去重
	existing, err := s.orderRepo.GetBySourceOrder(ctx, source.ID, data.ID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		log.Printf("[SyncService] 订单 %s 已存在，跳过 (source_order_id=%s)", data.OrderNumber, data.ID)
		return false, nil
	}

	// 入库宽限期：订单可能还在来源平台组装中
	createdAt, err := time.Parse(time.RFC3339, data.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("订单创建时间解析失败 (%q): %w", data.CreatedAt, err)
	}
	if createdAt.After(time.Now().UTC().Add(-IngestGracePeriod)) {
		log.Printf("[SyncService] 订单 %s 创建不足 %v，本轮跳过", data.OrderNumber, IngestGracePeriod)
		return false, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("订单原始数据序列化失败: %w", err)
	}

	order := &model.Order{
		SourceStoreID:   source.ID,
		SourceOrderID:   data.ID,
		OrderNumber:     data.OrderNumber,
		CustomerEmail:   data.Email,
		CustomerName:    data.CustomerName,
		CustomerPhone:   data.CustomerPhone,
		TotalPrice:      data.TotalPrice,
		Currency:        data.Currency,
		ShippingAddress: datatypes.JSONMap(data.ShippingAddress),
		BillingAddress:  datatypes.JSONMap(data.BillingAddress),
		OrderJSON:       datatypes.JSON(raw),
		Status:          model.OrderStatusPending,
	}
	for _, line := range data.LineItems {
		order.Lines = append(order.Lines, model.OrderLine{
			SKU:       line.SKU,
			EAN:       line.EAN,
			ProductID: line.ProductID,
			Title:     line.Title,
			Quantity:  line.Quantity,
			Price:     line.Price,
			Tags:      line.Tags,
		})
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return false, err
	}
	log.Printf("[SyncService] 订单 %s 已入库", data.OrderNumber)
	return true, nil
}

// ==================== 阶段 2: 路由分发 ====================

// RoutePendingOrders 把 pending 订单（以及冷却期已过的 failed 订单）分发到目标店铺
// 所有命中的路由规则都会触发下单（可多目标分发）；
// 重试次数超限的订单转入 needs_review；返回目标下单成功次数
func (s *SyncService) RoutePendingOrders(ctx context.Context) (int, error) {
	orders, err := s.orderRepo.ListRoutable(ctx, RetryCooldown)
	if err != nil {
		return 0, fmt.Errorf("查询待路由订单失败: %w", err)
	}
	if len(orders) == 0 {
		return 0, nil
	}
	log.Printf("[SyncService] 开始路由 %d 个订单", len(orders))

	sent := 0
	for i := range orders {
		order := &orders[i]

		// 重试超限，转人工处理
		if order.Status == model.OrderStatusFailed && order.RouteAttempts >= model.MaxRouteAttempts {
			s.warn("订单 %s 路由重试 %d 次仍失败，转入人工处理", order.OrderNumber, order.RouteAttempts)
			if err := s.orderRepo.UpdateFields(ctx, order.ID, map[string]interface{}{
				"status": model.OrderStatusNeedsReview,
			}); err != nil {
				log.Printf("[SyncService] 订单 %s 状态更新失败: %v", order.OrderNumber, err)
			}
			continue
		}

		created, err := s.routeOrder(ctx, order)
		sent += created
		if err != nil {
			// 单订单错误隔离：标记 failed 等待下轮冷却重试
			s.warn("订单 %s 路由失败: %v", order.OrderNumber, err)
			if err := s.orderRepo.UpdateFields(ctx, order.ID, map[string]interface{}{
				"status":         model.OrderStatusFailed,
				"route_attempts": order.RouteAttempts + 1,
			}); err != nil {
				log.Printf("[SyncService] 订单 %s 状态更新失败: %v", order.OrderNumber, err)
			}
		}
	}
	return sent, nil
}

// routeOrder 路由单个订单：评估规则、按需在各目标店铺下单、打标签、标记 synced
// 无规则命中时不改状态（保持 pending）；已有分发记录的目标跳过（部分分发重试）
func (s *SyncService) routeOrder(ctx context.Context, order *model.Order) (int, error) {
	rules, err := s.routingRepo.ListActiveBySource(ctx, order.SourceStoreID)
	if err != nil {
		return 0, err
	}
	if len(rules) == 0 {
		log.Printf("[SyncService] 订单 %s: 来源店铺无路由规则，跳过", order.OrderNumber)
		return 0, nil
	}

	matched := matchRoutes(order, rules)
	if len(matched) == 0 {
		log.Printf("[SyncService] 订单 %s: 无命中路由，跳过", order.OrderNumber)
		return 0, nil
	}

	source, err := s.storeRepo.GetByID(ctx, order.SourceStoreID)
	if err != nil {
		return 0, fmt.Errorf("来源店铺不存在: %w", err)
	}

	// 已成功分发过的目标（部分分发重试时跳过）
	delivered := make(map[int64]bool, len(order.Destinations))
	for _, d := range order.Destinations {
		delivered[d.DestinationStoreID] = true
	}

	created := 0
	var firstErr error
	for _, route := range matched {
		if delivered[route.DestinationStoreID] {
			log.Printf("[SyncService] 订单 %s: 目标店铺 %d 已分发过，跳过", order.OrderNumber, route.DestinationStoreID)
			continue
		}

		n, err := s.sendToDestination(ctx, source, order, &route)
		created += n
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		return created, firstErr
	}

	// 全部目标成功：给来源订单打 synced 标签（尽力而为，失败不回滚状态）
	if conn, err := s.connect(source); err == nil {
		if err := conn.TagOrder(ctx, order.SourceOrderID, "synced"); err != nil {
			log.Printf("[SyncService] 订单 %s: 来源打标签失败（忽略）: %v", order.OrderNumber, err)
		}
	}

	now := time.Now().UTC()
	if err := s.orderRepo.UpdateFields(ctx, order.ID, map[string]interface{}{
		"status":    model.OrderStatusSynced,
		"synced_at": now,
	}); err != nil {
		return created, err
	}
	return created, nil
}

// sendToDestination 在单个目标店铺下单并记录分发结果
func (s *SyncService) sendToDestination(ctx context.Context, source *model.Store, order *model.Order, route *model.OrderRouting) (int, error) {
	dest, err := s.storeRepo.GetByID(ctx, route.DestinationStoreID)
	if err != nil {
		return 0, fmt.Errorf("目标店铺 %d 不存在: %w", route.DestinationStoreID, err)
	}

	conn, err := s.connect(dest)
	if err != nil {
		return 0, fmt.Errorf("目标店铺 %s 连接器创建失败: %w", dest.Name, err)
	}

	log.Printf("[SyncService] 订单 %s -> 目标店铺 %s (匹配方式: %s)", order.OrderNumber, dest.Name, route.LookupMethod)

	input := &connector.CreateOrderInput{
		LookupMethod:      route.LookupMethod,
		SourceStoreName:   source.Name,
		SourceOrderNumber: order.OrderNumber,
		CustomerEmail:     order.CustomerEmail,
		CustomerName:      order.CustomerName,
		CustomerPhone:     order.CustomerPhone,
		ShippingAddress:   order.ShippingAddress,
		BillingAddress:    order.BillingAddress,
	}
	for _, line := range order.Lines {
		input.LineItems = append(input.LineItems, connector.CreateLineItem{
			SKU:      line.SKU,
			EAN:      line.EAN,
			Title:    line.Title,
			Quantity: line.Quantity,
			Price:    line.Price,
		})
	}

	createdOrder, err := conn.CreateOrder(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("目标店铺 %s 下单失败: %w", dest.Name, err)
	}
	log.Printf("[SyncService] 订单 %s 已在 %s 创建为 %s (ID: %s)",
		order.OrderNumber, dest.Name, createdOrder.OrderNumber, createdOrder.ID)

	if err := s.orderRepo.AddDestination(ctx, &model.OrderDestination{
		OrderID:            order.ID,
		DestinationStoreID: dest.ID,
		DestinationOrderID: createdOrder.ID,
		LookupMethod:       route.LookupMethod,
	}); err != nil {
		return 1, fmt.Errorf("分发记录写入失败: %w", err)
	}

	// 主目标字段保留最后一次成功下单（阶段 3/4 的回查入口）
	if err := s.orderRepo.UpdateFields(ctx, order.ID, map[string]interface{}{
		"destination_store_id": dest.ID,
		"destination_order_id": createdOrder.ID,
	}); err != nil {
		return 1, err
	}
	return 1, nil
}

// ==================== 阶段 3: 取消回写 ====================

// PollCancellations 检查已同步订单在目标店铺是否被取消，取消则回写来源
// tracking_synced_at 复用为已处理标记，置位后不再进入本阶段
func (s *SyncService) PollCancellations(ctx context.Context) (int, error) {
	orders, err := s.orderRepo.ListCancellationCandidates(ctx)
	if err != nil {
		return 0, fmt.Errorf("查询待检查订单失败: %w", err)
	}
	if len(orders) == 0 {
		return 0, nil
	}
	log.Printf("[SyncService] 检查 %d 个已同步订单的取消状态", len(orders))

	cancelled := 0
	for i := range orders {
		order := &orders[i]

		destOrder := s.fetchDestinationOrder(ctx, order)
		if destOrder == nil {
			continue
		}

		if destOrder.CancelledAt == "" && destOrder.FinancialStatus != "voided" {
			continue
		}

		log.Printf("[SyncService] 订单 %s 已在目标店铺取消，回写来源...", order.OrderNumber)

		source, err := s.storeRepo.GetByID(ctx, order.SourceStoreID)
		if err != nil {
			s.warn("订单 %s: 来源店铺查询失败: %v", order.OrderNumber, err)
			continue
		}
		conn, err := s.connect(source)
		if err != nil {
			s.warn("订单 %s: 来源连接器创建失败: %v", order.OrderNumber, err)
			continue
		}

		reason := connector.NormalizeCancelReason(destOrder.CancelReason)
		if err := conn.CancelOrder(ctx, order.SourceOrderID, reason); err != nil {
			s.warn("订单 %s: 来源取消失败: %v", order.OrderNumber, err)
			continue
		}

		now := time.Now().UTC()
		if err := s.orderRepo.UpdateFields(ctx, order.ID, map[string]interface{}{
			"status":             model.OrderStatusCancelled,
			"tracking_synced_at": now, // 标记已处理
		}); err != nil {
			log.Printf("[SyncService] 订单 %s 状态更新失败: %v", order.OrderNumber, err)
			continue
		}
		cancelled++
		log.Printf("[SyncService] 订单 %s 已在来源取消 (原因: %s)", order.OrderNumber, reason)
	}
	return cancelled, nil
}

// ==================== 阶段 4: 物流回写 ====================

// PollTracking 检查已同步订单在目标店铺的物流信息并回写来源
// 本地缓存的物流字段首写优先；回写失败保持 synced 等下轮重试
func (s *SyncService) PollTracking(ctx context.Context) (int, error) {
	orders, err := s.orderRepo.ListTrackingCandidates(ctx, TrackingGracePeriod)
	if err != nil {
		return 0, fmt.Errorf("查询待回写订单失败: %w", err)
	}
	if len(orders) == 0 {
		return 0, nil
	}
	log.Printf("[SyncService] 检查 %d 个订单的物流信息", len(orders))

	updated := 0
	for i := range orders {
		order := &orders[i]

		if !order.HasDestination() {
			log.Printf("[SyncService] 订单 %s: 缺少目标店铺信息，跳过", order.OrderNumber)
			continue
		}

		destOrder := s.fetchDestinationOrder(ctx, order)
		if destOrder == nil {
			continue
		}

		tracking := ExtractTracking(destOrder)
		if tracking == nil {
			log.Printf("[SyncService] 订单 %s: 暂无物流 (目标履约状态=%s, 履约记录=%d)",
				order.OrderNumber, destOrder.FulfillmentStatus, len(destOrder.Fulfillments))
			continue
		}
		log.Printf("[SyncService] 订单 %s 发现物流单号: %s", order.OrderNumber, tracking.TrackingNumber)

		// 本地缓存物流字段（首写优先，不覆盖已记录的单号）
		if order.TrackingNumber == "" {
			if err := s.orderRepo.UpdateFields(ctx, order.ID, map[string]interface{}{
				"tracking_number":  tracking.TrackingNumber,
				"tracking_company": tracking.TrackingCompany,
				"tracking_url":     tracking.TrackingURL,
			}); err != nil {
				log.Printf("[SyncService] 订单 %s 物流缓存失败: %v", order.OrderNumber, err)
			}
		}

		// 回写来源店铺
		source, err := s.storeRepo.GetByID(ctx, order.SourceStoreID)
		if err != nil {
			s.warn("订单 %s: 来源店铺查询失败: %v", order.OrderNumber, err)
			continue
		}
		conn, err := s.connect(source)
		if err != nil {
			s.warn("订单 %s: 来源连接器创建失败: %v", order.OrderNumber, err)
			continue
		}
		if err := conn.UpdateTracking(ctx, order.SourceOrderID, tracking); err != nil {
			s.warn("订单 %s: 物流回写失败: %v", order.OrderNumber, err)
			continue
		}

		now := time.Now().UTC()
		if err := s.orderRepo.UpdateFields(ctx, order.ID, map[string]interface{}{
			"status":             model.OrderStatusTrackingUpdated,
			"tracking_synced_at": now,
		}); err != nil {
			log.Printf("[SyncService] 订单 %s 状态更新失败: %v", order.OrderNumber, err)
			continue
		}
		updated++
		log.Printf("[SyncService] 订单 %s 物流已回写来源", order.OrderNumber)
	}
	return updated, nil
}

// fetchDestinationOrder 从主目标店铺拉取订单，拉不到时返回 nil（跳过处理）
func (s *SyncService) fetchDestinationOrder(ctx context.Context, order *model.Order) *connector.OrderData {
	dest, err := s.storeRepo.GetByID(ctx, *order.DestinationStoreID)
	if err != nil {
		s.warn("订单 %s: 目标店铺查询失败: %v", order.OrderNumber, err)
		return nil
	}
	conn, err := s.connect(dest)
	if err != nil {
		s.warn("订单 %s: 目标连接器创建失败: %v", order.OrderNumber, err)
		return nil
	}

	destOrder, err := conn.GetOrder(ctx, order.DestinationOrderID)
	if err != nil || destOrder == nil {
		log.Printf("[SyncService] 订单 %s: 目标店铺订单拉取失败，跳过", order.OrderNumber)
		return nil
	}
	return destOrder
}

// ==================== 路由匹配 ====================

// matchRoutes 评估订单命中的路由规则
// 每条规则独立评估（非首条命中即止），所有命中规则的目标都会分发
func matchRoutes(order *model.Order, rules []model.OrderRouting) []model.OrderRouting {
	var matched []model.OrderRouting
	for _, rule := range rules {
		switch rule.RoutingMethod {
		case model.RoutingMethodAll:
			matched = append(matched, rule)

		case model.RoutingMethodOrderTags:
			if rule.RoutingMethodValue == "" {
				continue
			}
			target := strings.ToLower(strings.TrimSpace(rule.RoutingMethodValue))
			for _, line := range order.Lines {
				if lineHasTag(line.Tags, target) {
					matched = append(matched, rule)
					break
				}
			}
		}
	}
	return matched
}

// lineHasTag 判断订单行标签串中是否包含目标标签（忽略大小写，target 已小写）
func lineHasTag(tags, target string) bool {
	for _, t := range strings.Split(tags, ",") {
		if strings.ToLower(strings.TrimSpace(t)) == target {
			return true
		}
	}
	return false
}

// ==================== 物流提取 ====================

// ExtractTracking 从目标订单提取物流信息
// 只接受履约状态 fulfilled / partial，且只取第一条履约记录；
// 没有单号视为无物流
func ExtractTracking(order *connector.OrderData) *connector.Tracking {
	if order.FulfillmentStatus != "fulfilled" && order.FulfillmentStatus != "partial" {
		return nil
	}
	if len(order.Fulfillments) == 0 {
		return nil
	}

	first := order.Fulfillments[0]
	if first.TrackingNumber == "" {
		return nil
	}
	return &connector.Tracking{
		TrackingNumber:  first.TrackingNumber,
		TrackingCompany: first.TrackingCompany,
		TrackingURL:     first.TrackingURL,
	}
}

// ==================== 告警收集 ====================

// warn 打印并收集到本轮周期的告警列表
func (s *SyncService) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("[SyncService] %s", msg)
	s.warnings = append(s.warnings, msg)
}
