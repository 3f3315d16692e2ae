package main

import (
	"context"
	"log"

	cmdDispatch "chakula-delivery/cmd/dispatch-service"
	cmdGateway "chakula-delivery/cmd/gateway-service"
	cmdOrder "chakula-delivery/cmd/order-service"
	cmdTracking "chakula-delivery/cmd/tracking-service"
	"chakula-delivery/internal/common/auth"
	"chakula-delivery/internal/common/config"
	"chakula-delivery/internal/common/db"
	"chakula-delivery/internal/common/events"
	"chakula-delivery/internal/common/logger"
	"chakula-delivery/internal/common/mq"
	dispatchrepo "chakula-delivery/internal/dispatch/repository"
	dispatchsvc "chakula-delivery/internal/dispatch/service"
	"chakula-delivery/internal/gateway"
	notificationrepo "chakula-delivery/internal/notification/repository"
	notificationsvc "chakula-delivery/internal/notification/service"
	orderrepo "chakula-delivery/internal/order/repository"
	ordersvc "chakula-delivery/internal/order/service"
	trackingrepo "chakula-delivery/internal/tracking/repository"
	trackingsvc "chakula-delivery/internal/tracking/service"
)

func main() {
	logger.SetServiceName("chakula-delivery")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	cfg.Print()
	auth.SetSecret(cfg.JWTSecret)

	pg, err := db.NewPostgres(
		cfg.Database.Host, cfg.Database.Port,
		cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
	)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pg.Close()

	if err := pg.RunMigrations("migrations"); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	rabbit, err := mq.NewRabbitMQ(
		cfg.RabbitMQ.Host, cfg.RabbitMQ.Port,
		cfg.RabbitMQ.User, cfg.RabbitMQ.Password,
	)
	if err != nil {
		log.Fatalf("rabbitmq error: %v", err)
	}
	defer rabbit.Close()

	bus := events.NewBus()

	orders := ordersvc.NewService(orderrepo.NewOrderRepository(pg.Pool), bus)
	dispatches := dispatchsvc.NewService(dispatchrepo.NewDispatchRepository(pg.Pool), orders, bus)
	tracking := trackingsvc.NewService(
		trackingrepo.NewSessionRepository(pg.Pool),
		dispatches, orders, bus,
		cfg.Geofence.DefaultRadiusM,
	)

	notifications := notificationsvc.NewService(
		notificationrepo.NewNotificationRepository(pg.Pool),
		notificationsvc.DefaultSenders(),
		bus,
		cfg.Notification.Workers,
	)
	notifications.SetOrderLookup(func(ctx context.Context, orderID string) (string, string, error) {
		order, err := orders.Get(ctx, orderID)
		if err != nil {
			return "", "", err
		}
		return order.CustomerID, order.VendorID, nil
	})
	defer notifications.Close()

	gw := gateway.NewGateway(orders)

	cmdOrder.Run(cfg, orders, notifications, rabbit, bus)
	cmdDispatch.Run(cfg, dispatches, rabbit, bus)
	cmdTracking.Run(cfg, tracking, rabbit, bus)
	cmdGateway.Run(cfg, gw, rabbit, bus)

	select {}
}
