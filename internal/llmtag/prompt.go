package llmtag

// addressPrompt mirrors the category vocabulary used across the pipeline.
// The model must answer with a bare JSON object; ParseEntities salvages the
// common deviations (code fences, surrounding prose).
const addressPrompt = `你是一个地址解析专家。请将给定的中文地址分解为以下类别标签：

# 行政区划类
prov（省级）、city（地级）、district（县级）、town（乡级）

# 道路地址类
road（道路）、roadno（门牌）

# 建筑点位类
poi（兴趣点）、subpoi（子兴趣点）、houseno（楼号）、cellno（单元）、floorno（楼层）、roomno（房间号）

# 其他类
community（社区）、village_group（村组）、devzone（开发区）、assist（辅助信息）

输出要求：
- 输出JSON格式，包含所有识别出的类别-值对
- 值必须是原地址中的连续子串，不要改写
- 同一类别出现多次时，用英文逗号连接多个值
- 如果地址中没有某个类别的部分，则跳过该类别
- 只输出JSON对象，不要输出其他文字

现在，请对以下地址进行分类：
{{address}}`
