// Package xscopeconf 从配置文件加载作用域档案（scope profile）。
//
// 档案是一组命名的初始键值集合，用于给 xscope.Engine.Run 或中间件的
// init 钩子提供初始状态。配置文件结构：
//
//	defaults:
//	  env: prod
//	profiles:
//	  web:
//	    service: api
//	    region: cn-north
//	  batch:
//	    service: worker
//
// 读取 "web" 档案得到 defaults 与 web 合并后的结果。合并语义与
// xscope.ShallowMerge 一致：档案中的键整体覆盖 defaults 中的同名键。
//
// 基于 koanf 实现，支持 YAML 与 JSON，支持 Reload 与 fsnotify 文件监视。
// Profile 返回的 Store 是深拷贝，调用方可自由修改。
package xscopeconf
