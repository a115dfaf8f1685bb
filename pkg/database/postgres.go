package database

import (
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 初始化数据库连接
// dsn: 数据库连接字符串
// logSQL: 是否打印 SQL（开发环境打开，方便调试；定时任务跑批时建议关闭）
// models: 需要自动建表/迁移的结构体指针
func InitDB(dsn string, logSQL bool, models ...interface{}) *gorm.DB {
	logMode := logger.Warn
	if logSQL {
		logMode = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		log.Fatalf("[Database] 数据库连接失败: %v", err)
	}

	// 获取底层的 sqlDB 对象，用于设置连接池参数
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("[Database] 获取底层 SQL DB 失败: %v", err)
	}

	// 同步周期是单协程跑批，连接数不需要太大
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("[Database] 数据库连接成功")

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			log.Fatalf("[Database] 自动建表出错: %v", err)
		}
	}

	return db
}
