package chain

const snapshotQuery = `query snapshot($id: ID!) {
  position(id: $id) {
    id
    liquidity
    collectedFeesToken0
    collectedFeesToken1
    tickLower { tickIdx }
    tickUpper { tickIdx }
    token0 { symbol decimals }
    token1 { symbol decimals }
    pool { tick sqrtPrice token0Price }
  }
  _meta { block { number } }
}`

const ratesQuery = `query rates($id: ID!) {
  position(id: $id) {
    token0 { derivedETH }
    token1 { derivedETH }
  }
  bundle(id: "1") { ethPriceUSD }
}`

const mintQuery = `query mint($id: ID!) {
  position(id: $id) {
    transaction { id blockNumber timestamp }
  }
}`

const initDataQuery = `query initData($id: ID!, $block: Int!) {
  position(id: $id, block: { number: $block }) {
    depositedToken0
    depositedToken1
    token0 { symbol derivedETH }
    token1 { symbol derivedETH }
  }
  bundle(id: "1", block: { number: $block }) { ethPriceUSD }
}`
