package db

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/agent-chat/internal/common"
	"github.com/suPer8Hu/agent-chat/internal/config"
	"gorm.io/gorm"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil, "x"))

	err := Classify(gorm.ErrRecordNotFound, "user not found")
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
	assert.Equal(t, "user not found", common.MessageOf(err))

	assert.Equal(t, common.KindDuplicateKey, common.KindOf(Classify(gorm.ErrDuplicatedKey, "x")))
	assert.Equal(t, common.KindDuplicateKey, common.KindOf(Classify(errors.New("Error 1062: Duplicate entry 'a' for key 'username'"), "x")))
	assert.Equal(t, common.KindStoreFailure, common.KindOf(Classify(errors.New("connection reset"), "x")))
}

func TestDialector(t *testing.T) {
	for _, d := range []string{"", "mysql", "postgres", "postgresql", "SQLite"} {
		_, err := Dialector(d, "dsn")
		assert.NoError(t, err, d)
	}
	_, err := Dialector("oracle", "dsn")
	assert.Error(t, err)
}

type row struct {
	ID   uint
	Name string `gorm:"uniqueIndex"`
}

func TestConnect_SQLiteTranslatesDuplicates(t *testing.T) {
	log := logrus.New()
	cfg := config.Config{DBDriver: "sqlite", DBDSN: filepath.Join(t.TempDir(), "test.db")}

	gdb, err := Connect(cfg, log)
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, gdb.AutoMigrate(&row{}))
	require.NoError(t, gdb.Create(&row{Name: "a"}).Error)

	err = gdb.Create(&row{Name: "a"}).Error
	assert.True(t, IsDuplicate(err), "err: %v", err)
}
