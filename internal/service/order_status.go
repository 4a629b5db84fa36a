package service

import (
	"strings"

	"github.com/devshad-01/alx-project-nexus/internal/constants"
)

// allowedTransitions 订单状态机：键为当前状态，值为允许迁移到的目标状态
var allowedTransitions = map[string][]string{
	constants.OrderStatusPending: {
		constants.OrderStatusConfirmed,
		constants.OrderStatusCancelled,
	},
	constants.OrderStatusConfirmed: {
		constants.OrderStatusProcessing,
		constants.OrderStatusCancelled,
	},
	constants.OrderStatusProcessing: {
		constants.OrderStatusShipped,
	},
	constants.OrderStatusShipped: {
		constants.OrderStatusDelivered,
	},
	constants.OrderStatusDelivered: {},
	constants.OrderStatusCancelled: {},
}

// isTransitionAllowed 判断状态迁移是否合法，目标与当前相同视为幂等允许
func isTransitionAllowed(current, target string) bool {
	current = strings.ToLower(strings.TrimSpace(current))
	target = strings.ToLower(strings.TrimSpace(target))
	if current == target {
		return true
	}
	targets, ok := allowedTransitions[current]
	if !ok {
		return false
	}
	for _, t := range targets {
		if t == target {
			return true
		}
	}
	return false
}

// isKnownOrderStatus 判断状态值是否在状态机定义内
func isKnownOrderStatus(status string) bool {
	_, ok := allowedTransitions[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// canCancelOrder 判断订单当前状态是否允许取消
func canCancelOrder(current string) bool {
	switch strings.ToLower(strings.TrimSpace(current)) {
	case constants.OrderStatusPending, constants.OrderStatusConfirmed:
		return true
	default:
		return false
	}
}
