package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"comicbook/internal/model"
)

var ErrNotFound = errors.New("comic not found")

// Comic 一次成功生成的结果
type Comic struct {
	ID        string        `json:"id"`
	Story     string        `json:"story"`
	Panels    []model.Panel `json:"panels"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ComicStore 内存中的漫画存储，过期自动清理
type ComicStore struct {
	c *cache.Cache
}

// New 创建存储；ttl<=0 表示永不过期
func New(ttl time.Duration) *ComicStore {
	if ttl <= 0 {
		return &ComicStore{c: cache.New(cache.NoExpiration, 0)}
	}
	return &ComicStore{c: cache.New(ttl, ttl/2)}
}

// Save 保存面板副本并返回新 id
func (s *ComicStore) Save(story string, panels []model.Panel) Comic {
	comic := Comic{
		ID:        uuid.NewString(),
		Story:     story,
		Panels:    append([]model.Panel(nil), panels...),
		CreatedAt: time.Now(),
	}
	s.c.Set(comic.ID, comic, cache.DefaultExpiration)
	return comic
}

// Get 按 id 读取，返回的面板切片是副本
func (s *ComicStore) Get(id string) (Comic, error) {
	v, ok := s.c.Get(id)
	if !ok {
		return Comic{}, ErrNotFound
	}
	comic := v.(Comic)
	comic.Panels = append([]model.Panel(nil), comic.Panels...)
	return comic, nil
}

// Len 当前保存的漫画数量
func (s *ComicStore) Len() int {
	return s.c.ItemCount()
}
