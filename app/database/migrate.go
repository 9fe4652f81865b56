package database

import "lifetrace/app/model"

func AutoMigrate() error {
	// 自动迁移表结构
	return DB.AutoMigrate(
		&model.User{},
		&model.RestRecord{},
		&model.GtdTask{},
		&model.VideoTask{},
	)
}
