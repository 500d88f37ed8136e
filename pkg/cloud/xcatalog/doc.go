// Package xcatalog 提供服务目录（Service Catalog）模型与端点解析。
//
// # 功能概述
//
//   - Catalog：身份服务随 Token 一起返回的服务列表，构造后不可变
//   - Resolve：按服务类型、接口偏好、Region、版本约束确定性地选出一个端点
//   - ParseKeystoneCatalog：将身份服务的 catalog JSON 解析为 Catalog
//   - Fingerprint：目录内容摘要，用于在刷新前后判断目录是否变化
//
// # 解析算法
//
//  1. 服务类型精确匹配（大小写敏感，不做模糊匹配）；无精确匹配时才使用通配条目 "*"
//  2. 指定 Region 时保留 Region 相同或为空的端点；未指定时全部保留
//  3. 指定版本区间时，URL 中带版本段（v2、v2.1）的端点必须落在区间内，无版本段的端点视为通配
//  4. 按调用方给出的接口顺序逐个尝试，第一个有候选端点的接口胜出
//
// 同一接口下存在多个候选（例如未指定 Region）时，取目录顺序中的第一个。
// 这是确定性的取舍规则，不视为错误。
//
// # 并发安全
//
// Catalog 不可变，可在任意多个 goroutine 间共享。内部的解析结果缓存（LRU）自身并发安全，
// 只缓存成功结果。
package xcatalog
