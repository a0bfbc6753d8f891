package router

import (
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
)

// 模块可选择实现其中一个或多个接口
type PublicModule interface{ MountPublic(*gin.RouterGroup) }
type APIModule interface{ MountAPI(*gin.RouterGroup) }
type AdminModule interface{ MountAdmin(*gin.RouterGroup) }

// 可选：实现该接口可控制挂载顺序（数值越小越先挂）
// 不实现则默认 100
type prioritizer interface{ Priority() int }

// Registry 每个引擎一份，不用包级全局
type Registry struct {
	mu         sync.RWMutex
	publicMods []PublicModule
	apiMods    []APIModule
	adminMods  []AdminModule
}

// Register 统一注册入口：根据类型断言分发
func (r *Registry) Register(mods ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mod := range mods {
		if m, ok := mod.(PublicModule); ok {
			r.publicMods = append(r.publicMods, m)
		}
		if m, ok := mod.(APIModule); ok {
			r.apiMods = append(r.apiMods, m)
		}
		if m, ok := mod.(AdminModule); ok {
			r.adminMods = append(r.adminMods, m)
		}
	}
}

func (r *Registry) MountAllPublic(g *gin.RouterGroup) {
	r.mu.RLock()
	mods := append([]PublicModule(nil), r.publicMods...)
	r.mu.RUnlock()
	sortByPriority(mods)
	for _, m := range mods {
		m.MountPublic(g)
	}
}

// MountAllAPI 挂在已登录分组
func (r *Registry) MountAllAPI(g *gin.RouterGroup) {
	r.mu.RLock()
	mods := append([]APIModule(nil), r.apiMods...)
	r.mu.RUnlock()
	sortByPriority(mods)
	for _, m := range mods {
		m.MountAPI(g)
	}
}

// MountAllAdmin 挂在 /admin（admin / kierownik）
func (r *Registry) MountAllAdmin(g *gin.RouterGroup) {
	r.mu.RLock()
	mods := append([]AdminModule(nil), r.adminMods...)
	r.mu.RUnlock()
	sortByPriority(mods)
	for _, m := range mods {
		m.MountAdmin(g)
	}
}

func sortByPriority[T any](mods []T) {
	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
